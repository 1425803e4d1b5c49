// ABOUTME: Remote export through a running export service
// ABOUTME: Finds services with mDNS and runs a session export with per-file preview checks
package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/op1kit/op1drum/internal/client"
	"github.com/op1kit/op1drum/internal/discovery"
	"github.com/op1kit/op1drum/pkg/bridge"
)

// discoverServer returns the URL of the first export service that answers
func discoverServer(timeout time.Duration) (string, error) {
	disc := discovery.NewManager(discovery.Config{})
	defer disc.Stop()

	servers, err := disc.Lookup(timeout)
	if err != nil {
		return "", fmt.Errorf("mDNS lookup failed: %w", err)
	}
	if len(servers) == 0 {
		return "", fmt.Errorf("no export service found after %s", timeout)
	}
	log.Printf("Using export service %s at %s", servers[0].Name, servers[0].URL())
	return servers[0].URL(), nil
}

// exportRemote uploads files into a fresh session, checks that every file
// decodes and exports the session
func exportRemote(baseURL string, files []bridge.File, opts bridge.KitOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := client.NewClient(client.Config{BaseURL: baseURL})
	defer c.Close()

	id, err := c.CreateSession(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := c.DeleteSession(context.Background(), id); err != nil {
			log.Printf("Failed to close session %s: %v", id, err)
		}
	}()

	if _, err := c.Connect(id); err != nil {
		return nil, err
	}

	gens := make(map[int]uint64, len(files))
	for n, f := range files {
		gen, err := c.PutSlot(ctx, id, n, filepath.Base(f.Name), f.Data)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", f.Name, err)
		}
		gens[n] = gen
	}

	previews, err := c.WaitForPreviews(ctx, gens)
	if err != nil {
		return nil, err
	}
	for n := range files {
		ev := previews[n]
		if ev.Error != "" {
			return nil, fmt.Errorf("%s: %s", files[n].Name, ev.Error)
		}
		log.Printf("Slot %d: %s, %d Hz, %.2fs", n+1, ev.Name, ev.Rate, ev.Duration)
	}

	return c.ExportSession(ctx, id, opts)
}

// ABOUTME: Entry point for the drum kit export service
// ABOUTME: Loads configuration, wires bridge and metrics and runs the HTTP server
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/op1kit/op1drum/internal/config"
	"github.com/op1kit/op1drum/internal/engine"
	"github.com/op1kit/op1drum/internal/metrics"
	"github.com/op1kit/op1drum/internal/server"
	"github.com/op1kit/op1drum/internal/version"
	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

var (
	configPath = flag.String("config", "", "YAML configuration file")
	port       = flag.Int("port", 0, "HTTP port (overrides config)")
	name       = flag.String("name", "", "Service name for mDNS (default: hostname-op1drum)")
	logFile    = flag.String("log-file", "", "Log file path (overrides config, default op1drum-server.log)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	useTUI     = flag.Bool("tui", false, "Show the status TUI instead of streaming logs")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *debug {
		cfg.Logging.Debug = true
	}
	if *noMDNS {
		cfg.Discovery.Enabled = false
	}
	if *logFile != "" {
		cfg.Logging.File = *logFile
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = "op1drum-server.log"
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up logging
	f, err := os.OpenFile(cfg.Logging.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	if *useTUI {
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	if cfg.Logging.Debug {
		bridge.Debug = true
		engine.Debug = true
		op1.Debug = true
	}

	serviceName := *name
	if serviceName == "" {
		serviceName = cfg.Discovery.Name
	}
	if serviceName == "" || serviceName == config.Default().Discovery.Name {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serviceName = fmt.Sprintf("%s-%s", hostname, version.Product)
	}

	log.Printf("Starting %s %s: %s on %s", version.Product, version.Version, serviceName, cfg.Server.ListenAddress())
	if cfg.Logging.Debug {
		log.Printf("Debug logging enabled")
	}
	log.Printf("Logging to: %s", cfg.Logging.File)

	srv := server.New(server.Config{
		Address:            cfg.Server.Address,
		Port:               cfg.Server.Port,
		Name:               serviceName,
		Version:            version.Version,
		EnableMDNS:         cfg.Discovery.Enabled,
		Debug:              cfg.Logging.Debug,
		UseTUI:             *useTUI,
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		SessionTimeout:     cfg.Server.GetSessionTimeoutDuration(),
		PreviewWidth:       cfg.Preview.Width,
		PreviewConcurrency: cfg.Preview.Concurrency,
		Kit:                cfg.Kit,
	}, bridge.NewDefault(), metrics.NewMetrics())

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}

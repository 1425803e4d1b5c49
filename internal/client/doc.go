// ABOUTME: Package documentation for the export service client
// ABOUTME: Describes the session workflow the client drives

// Package client talks to a running drum kit export service.
//
// A typical remote export creates a session, connects to its event stream,
// uploads each file into a slot, waits for the slot previews and exports:
//
//	c := client.NewClient(client.Config{BaseURL: "http://host:8930"})
//	defer c.Close()
//	id, _ := c.CreateSession(ctx)
//	c.Connect(id)
//	gen, _ := c.PutSlot(ctx, id, 0, "kick.wav", data)
//	c.WaitForPreviews(ctx, map[int]uint64{0: gen})
//	kit, err := c.ExportSession(ctx, id, bridge.KitOptions{})
//
// A client is used for one event connection; Close ends it for good.
package client

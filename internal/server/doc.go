// ABOUTME: Package documentation for the export service
// ABOUTME: Describes sessions, slot previews and the export endpoints

// Package server implements the drum kit export service.
//
// A client opens a session, uploads audio into its 24 slots and listens on
// the session's WebSocket. Each upload gets a new generation and starts a
// preview task that decodes the audio through the bridge and publishes the
// slot's rate, length and waveform envelope. A preview that finishes after
// its slot was replaced is dropped.
//
// Endpoints:
//
//	POST   /api/sessions                  create a session
//	GET    /api/sessions/{id}             slot states
//	DELETE /api/sessions/{id}             close a session
//	PUT    /api/sessions/{id}/slots/{n}   upload slot n (0-23), X-Filename names it
//	DELETE /api/sessions/{id}/slots/{n}   clear slot n
//	POST   /api/sessions/{id}/export      export filled slots as drum.aif
//	GET    /api/sessions/{id}/events      WebSocket of slot events
//	POST   /api/export                    one-shot multipart export of "files"
//	GET    /healthz
//	GET    /metrics
//
// A failed export answers 422 with the stage and file that failed and never
// sends partial output.
package server

// ABOUTME: Tests for the export service client
// ABOUTME: Runs sessions, previews and exports against an in-process service
package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/op1kit/op1drum/internal/metrics"
	"github.com/op1kit/op1drum/internal/server"
	"github.com/op1kit/op1drum/internal/testaudio"
	"github.com/op1kit/op1drum/pkg/bridge"
	"github.com/op1kit/op1drum/pkg/op1"
)

func newService(t *testing.T) *Client {
	t.Helper()

	srv := server.New(server.Config{Name: "test", PreviewWidth: 8}, bridge.NewDefault(), metrics.NewMetrics())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := NewClient(Config{BaseURL: ts.URL + "/"})
	t.Cleanup(c.Close)
	return c
}

func TestSessionRoundTrip(t *testing.T) {
	c := newService(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	id, err := c.CreateSession(ctx)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	state, err := c.Connect(id)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if state.ID != id || len(state.Slots) != 0 {
		t.Errorf("unexpected initial state: %+v", state)
	}
	if !c.IsConnected() {
		t.Error("expected client to be connected")
	}

	gens := make(map[int]uint64)
	for n, freq := range []float64{110, 220} {
		gen, err := c.PutSlot(ctx, id, n, "tone.wav", testaudio.WAV(t, 44100, testaudio.Sine(44100, 441, freq, 0.5)))
		if err != nil {
			t.Fatalf("PutSlot %d failed: %v", n, err)
		}
		gens[n] = gen
	}
	gen, err := c.PutSlot(ctx, id, 5, "broken.wav", []byte("RIFF...."))
	if err != nil {
		t.Fatalf("PutSlot 5 failed: %v", err)
	}
	gens[5] = gen

	previews, err := c.WaitForPreviews(ctx, gens)
	if err != nil {
		t.Fatalf("WaitForPreviews failed: %v", err)
	}
	for _, n := range []int{0, 1} {
		if ev := previews[n]; ev.Error != "" || ev.Frames != 441 || len(ev.Waveform) != 8 {
			t.Errorf("slot %d: unexpected preview %+v", n, ev)
		}
	}
	if previews[5].Error == "" {
		t.Error("expected an error preview for the broken file")
	}

	_, err = c.ExportSession(ctx, id, bridge.KitOptions{})
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if exportErr.StatusCode != 422 || exportErr.Stage != bridge.StageDecode || exportErr.File != "broken.wav" {
		t.Errorf("unexpected export error: %+v", exportErr)
	}

	if err := c.ClearSlot(ctx, id, 5); err != nil {
		t.Fatalf("ClearSlot failed: %v", err)
	}
	out, err := c.ExportSession(ctx, id, bridge.KitOptions{LFO: "random", LFOActive: true})
	if err != nil {
		t.Fatalf("ExportSession failed: %v", err)
	}
	drum, err := op1.ReadDrum(out)
	if err != nil {
		t.Fatalf("export is not a drum kit: %v", err)
	}
	if drum.UsedSlots() != 2 || drum.Metadata.LFOType != "random" {
		t.Errorf("unexpected kit: %d slots, lfo %q", drum.UsedSlots(), drum.Metadata.LFOType)
	}

	if err := c.DeleteSession(ctx, id); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if err := c.DeleteSession(ctx, id); err == nil {
		t.Error("deleting twice should fail")
	}
}

func TestOneShotExport(t *testing.T) {
	c := newService(t)

	files := []bridge.File{
		{Name: "/tmp/a.wav", Data: testaudio.WAV(t, 44100, testaudio.Silence(50))},
		{Name: "/tmp/b.wav", Data: testaudio.WAV(t, 44100, testaudio.Silence(70))},
	}
	out, err := c.Export(context.Background(), files, bridge.KitOptions{FX: "spring"})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	drum, err := op1.ReadDrum(out)
	if err != nil {
		t.Fatalf("export is not a drum kit: %v", err)
	}
	if drum.UsedSlots() != 2 || drum.Metadata.FXType != "spring" {
		t.Errorf("unexpected kit: %d slots, fx %q", drum.UsedSlots(), drum.Metadata.FXType)
	}
}

func TestConnectUnknownSession(t *testing.T) {
	c := newService(t)
	if _, err := c.Connect("missing"); err == nil {
		t.Fatal("expected connect to an unknown session to fail")
	}
}

func TestExportErrorMessage(t *testing.T) {
	tests := []struct {
		err  ExportError
		want string
	}{
		{ExportError{StatusCode: 422, Message: "bad", Stage: "decode", File: "a.wav"}, "decode a.wav: bad"},
		{ExportError{StatusCode: 422, Message: "empty", Stage: "validate"}, "validate: empty"},
		{ExportError{StatusCode: 404, Message: "not found"}, "status 404: not found"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// ABOUTME: Oto-based audio output implementation
// ABOUTME: Wraps the single oto context a process may own
package output

import (
	"fmt"
	"io"
	"log"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	otoCtx     *oto.Context
	sampleRate int
	channels   int
}

// NewOto creates a new Oto output
func NewOto() *Oto {
	return &Oto{}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	// If already initialized with same format, reuse the existing context
	if o.otoCtx != nil && o.sampleRate == sampleRate && o.channels == channels {
		return nil
	}

	// oto allows one context per process
	if o.otoCtx != nil {
		log.Printf("Warning: format change detected (%dHz %dch -> %dHz %dch) but oto doesn't support reinitialization. Continuing with existing context.",
			o.sampleRate, o.channels, sampleRate, channels)
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)
	return nil
}

// NewPlayer creates a player on the shared context
func (o *Oto) NewPlayer(r io.Reader) Player {
	return o.otoCtx.NewPlayer(r)
}

// Suspend pauses the hardware stream
func (o *Oto) Suspend() error {
	if o.otoCtx == nil {
		return nil
	}
	return o.otoCtx.Suspend()
}

// Resume restarts the hardware stream
func (o *Oto) Resume() error {
	if o.otoCtx == nil {
		return nil
	}
	return o.otoCtx.Resume()
}

// Close releases output resources. The oto context itself lives until the
// process exits, so it is only suspended.
func (o *Oto) Close() error {
	return o.Suspend()
}

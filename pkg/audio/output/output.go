// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for preview playback backends
package output

import "io"

// Device is a process-wide audio output that plays 16-bit little-endian
// PCM streams. Suspend and Resume stop and restart the hardware stream
// without tearing the device down.
type Device interface {
	// Open initializes the device; calling it again is a no-op
	Open(sampleRate, channels int) error

	// NewPlayer creates a player reading PCM from r
	NewPlayer(r io.Reader) Player

	Suspend() error
	Resume() error

	// Close releases output resources
	Close() error
}

// Player plays one PCM stream
type Player interface {
	Play()
	IsPlaying() bool
	SetVolume(volume float64)
	Close() error
}

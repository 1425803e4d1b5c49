// ABOUTME: OP-1 drum kit model
// ABOUTME: Holds the per-slot and global parameters written into the kit descriptor
package op1

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// Slots is the number of drum keys on an OP-1
	Slots = 24

	// MaxSeconds is the longest kit the OP-1 accepts
	MaxSeconds = 12

	// NativeRate is the rate the OP-1 time base is defined against
	NativeRate = 44100
)

// Play modes
const (
	PlaymodeForward = 0x1000
	PlaymodeOneShot = 0x2000
	PlaymodeLoop    = 0x4800
)

// Playback directions
const (
	PlaybackForward = 0x2000
	PlaybackReverse = 0x4800
)

const (
	VolumeFlat  = 0x2000
	PitchCenter = 0
)

var (
	ErrNoSamples      = errors.New("drum kit has no samples")
	ErrTooManySamples = fmt.Errorf("drum kit holds at most %d samples", Slots)
	ErrTooLong        = fmt.Errorf("drum kit exceeds %d seconds", MaxSeconds)
	ErrInvalidFX      = errors.New("invalid fx type")
	ErrInvalidLFO     = errors.New("invalid lfo type")
	ErrRateMismatch   = errors.New("samples have different sample rates")
)

// FXTypes lists the effects accepted by the OP-1
var FXTypes = []string{"cwo", "delay", "grid", "nitro", "phone", "punch", "spring"}

// LFOTypes lists the LFOs accepted by the OP-1
var LFOTypes = []string{"bend", "crank", "element", "midi", "random", "tremolo", "value"}

// Kit holds the parameters of a drum kit. Start and end times are in
// frames; when all of them are zero they are computed from sample lengths.
type Kit struct {
	Pitches    [Slots]int
	Playmodes  [Slots]int
	Directions [Slots]int
	Volumes    [Slots]int
	StartTimes [Slots]int
	EndTimes   [Slots]int

	Envelope  [8]int
	FXParams  [8]int
	LFOParams [8]int

	FXType    string
	FXActive  bool
	LFOType   string
	LFOActive bool

	// ConformRate resamples every sample to the first sample's rate.
	// When false, mismatched rates fail with ErrRateMismatch.
	ConformRate bool
}

// NewKit returns a kit with OP-1 factory defaults
func NewKit() *Kit {
	k := &Kit{
		Envelope:    [8]int{0, 8192, 0, 8192, 0, 0, 0, 0},
		FXType:      "cwo",
		LFOType:     "element",
		ConformRate: true,
	}
	for i := 0; i < Slots; i++ {
		k.Pitches[i] = PitchCenter
		k.Playmodes[i] = PlaymodeOneShot
		k.Directions[i] = PlaybackForward
		k.Volumes[i] = VolumeFlat
	}
	for i := range k.FXParams {
		k.FXParams[i] = 8000
		k.LFOParams[i] = 16000
	}
	return k
}

// SetFX selects the effect type
func (k *Kit) SetFX(fx string) error {
	if !slices.Contains(FXTypes, fx) {
		return fmt.Errorf("%w: %q", ErrInvalidFX, fx)
	}
	k.FXType = fx
	return nil
}

// SetLFO selects the LFO type
func (k *Kit) SetLFO(lfo string) error {
	if !slices.Contains(LFOTypes, lfo) {
		return fmt.Errorf("%w: %q", ErrInvalidLFO, lfo)
	}
	k.LFOType = lfo
	return nil
}

// explicitTimes reports whether any start or end time was set by hand
func (k *Kit) explicitTimes() bool {
	for i := 0; i < Slots; i++ {
		if k.StartTimes[i] != 0 || k.EndTimes[i] != 0 {
			return true
		}
	}
	return false
}

// ABOUTME: Tests for the OP-1 kit model
// ABOUTME: Tests defaults, fx/lfo validation and time base conversion
package op1

import (
	"errors"
	"testing"
)

func TestNewKitDefaults(t *testing.T) {
	k := NewKit()

	if k.FXType != "cwo" {
		t.Errorf("expected fx cwo, got %s", k.FXType)
	}
	if k.LFOType != "element" {
		t.Errorf("expected lfo element, got %s", k.LFOType)
	}
	if k.FXActive || k.LFOActive {
		t.Error("expected fx and lfo to be inactive")
	}
	for i := 0; i < Slots; i++ {
		if k.Playmodes[i] != PlaymodeOneShot {
			t.Fatalf("slot %d: expected one-shot playmode, got %#x", i, k.Playmodes[i])
		}
		if k.Directions[i] != PlaybackForward {
			t.Fatalf("slot %d: expected forward direction, got %#x", i, k.Directions[i])
		}
		if k.Volumes[i] != VolumeFlat {
			t.Fatalf("slot %d: expected flat volume, got %#x", i, k.Volumes[i])
		}
	}
	if k.Envelope != [8]int{0, 8192, 0, 8192, 0, 0, 0, 0} {
		t.Errorf("unexpected envelope: %v", k.Envelope)
	}
	if k.FXParams[0] != 8000 || k.LFOParams[7] != 16000 {
		t.Errorf("unexpected fx/lfo params: %v %v", k.FXParams, k.LFOParams)
	}
	if k.explicitTimes() {
		t.Error("default kit must use automatic times")
	}
}

func TestSetFX(t *testing.T) {
	k := NewKit()
	for _, fx := range FXTypes {
		if err := k.SetFX(fx); err != nil {
			t.Errorf("SetFX(%q) failed: %v", fx, err)
		}
	}

	err := k.SetFX("reverb")
	if !errors.Is(err, ErrInvalidFX) {
		t.Errorf("expected ErrInvalidFX, got %v", err)
	}
	if k.FXType != "spring" {
		t.Errorf("invalid fx must not change the kit, got %s", k.FXType)
	}
}

func TestSetLFO(t *testing.T) {
	k := NewKit()
	if err := k.SetLFO("tremolo"); err != nil {
		t.Fatalf("SetLFO failed: %v", err)
	}
	if k.LFOType != "tremolo" {
		t.Errorf("expected tremolo, got %s", k.LFOType)
	}
	if err := k.SetLFO("wobble"); !errors.Is(err, ErrInvalidLFO) {
		t.Errorf("expected ErrInvalidLFO, got %v", err)
	}
}

func TestFrameToTime(t *testing.T) {
	tests := []struct {
		frame    int
		expected int64
	}{
		{0, 0},
		{1, 4056},
		{44100, 44100 * 4056},
		{MaxFrames, int64(MaxFrames) * 4056},
	}

	for _, tt := range tests {
		if got := FrameToTime(tt.frame); got != tt.expected {
			t.Errorf("FrameToTime(%d): expected %d, got %d", tt.frame, tt.expected, got)
		}
		if got := TimeToFrame(tt.expected); got != tt.frame {
			t.Errorf("TimeToFrame(%d): expected %d, got %d", tt.expected, tt.frame, got)
		}
	}
}

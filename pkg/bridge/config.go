// ABOUTME: Kit configuration setters of the buffer bridge
// ABOUTME: Marshals effect names and parameter blocks into the module
package bridge

import (
	"fmt"

	"github.com/op1kit/op1drum/pkg/op1"
)

// SetFX selects the bank's effect type
func (b *Bridge) SetFX(bank *Bank, fx string) error {
	return b.setString(bank, "drum_set_fx", fx, b.mod.DrumSetFX)
}

// SetLFO selects the bank's LFO type
func (b *Bridge) SetLFO(bank *Bank, lfo string) error {
	return b.setString(bank, "drum_set_lfo", lfo, b.mod.DrumSetLFO)
}

func (b *Bridge) SetFXActive(bank *Bank, active bool) error {
	return b.setFlag(bank, "drum_set_fx_active", active, b.mod.DrumSetFXActive)
}

func (b *Bridge) SetLFOActive(bank *Bank, active bool) error {
	return b.setFlag(bank, "drum_set_lfo_active", active, b.mod.DrumSetLFOActive)
}

// SetConformRate controls whether samples at other rates are resampled
// to the first sample's rate or rejected at serialization
func (b *Bridge) SetConformRate(bank *Bank, on bool) error {
	return b.setFlag(bank, "drum_set_conform_rate", on, b.mod.DrumSetConformRate)
}

func (b *Bridge) SetFXParams(bank *Bank, params []int) error {
	return b.setBlock(bank, "drum_set_fx_params", params, 8, b.mod.DrumSetFXParams)
}

func (b *Bridge) SetLFOParams(bank *Bank, params []int) error {
	return b.setBlock(bank, "drum_set_lfo_params", params, 8, b.mod.DrumSetLFOParams)
}

func (b *Bridge) SetEnvelope(bank *Bank, envelope []int) error {
	return b.setBlock(bank, "drum_set_envelope", envelope, 8, b.mod.DrumSetEnvelope)
}

func (b *Bridge) SetPlaymodes(bank *Bank, modes []int) error {
	return b.setBlock(bank, "drum_set_playmode", modes, op1.Slots, b.mod.DrumSetPlaymode)
}

func (b *Bridge) SetDirections(bank *Bank, directions []int) error {
	return b.setBlock(bank, "drum_set_playback_direction", directions, op1.Slots, b.mod.DrumSetPlaybackDirection)
}

func (b *Bridge) SetPitches(bank *Bank, pitches []int) error {
	return b.setBlock(bank, "drum_set_pitches", pitches, op1.Slots, b.mod.DrumSetPitches)
}

func (b *Bridge) SetVolumes(bank *Bank, volumes []int) error {
	return b.setBlock(bank, "drum_set_volumes", volumes, op1.Slots, b.mod.DrumSetVolumes)
}

// SetStartTimes sets per-slot start frames. Setting any start or end time
// disables automatic slot layout.
func (b *Bridge) SetStartTimes(bank *Bank, frames []int) error {
	return b.setBlock(bank, "drum_set_start_times", frames, op1.Slots, b.mod.DrumSetStartTimes)
}

func (b *Bridge) SetEndTimes(bank *Bank, frames []int) error {
	return b.setBlock(bank, "drum_set_end_times", frames, op1.Slots, b.mod.DrumSetEndTimes)
}

func (b *Bridge) setString(bank *Bank, op, value string, call func(ctx, name uint32) int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkBank(bank, BankOpen); err != nil {
		return err
	}
	s := b.scratch()
	defer s.release()

	ptr, err := s.cString(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if status := call(bank.ctx, ptr); status != 0 {
		return fmt.Errorf("%w: %q: %w", ErrConfig, value, &StatusError{Op: op, Status: status})
	}
	return nil
}

func (b *Bridge) setFlag(bank *Bank, op string, on bool, call func(ctx uint32, v int32) int32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkBank(bank, BankOpen); err != nil {
		return err
	}
	var v int32
	if on {
		v = 1
	}
	if status := call(bank.ctx, v); status != 0 {
		return statusErr(ErrConfig, op, status)
	}
	return nil
}

func (b *Bridge) setBlock(bank *Bank, op string, values []int, n int, call func(ctx, params uint32) int32) error {
	if len(values) != n {
		return fmt.Errorf("%w: %s takes %d values, got %d", ErrConfig, op, n, len(values))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.checkBank(bank, BankOpen); err != nil {
		return err
	}
	s := b.scratch()
	defer s.release()

	ptr, err := s.int32s(values)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if status := call(bank.ctx, ptr); status != 0 {
		return statusErr(ErrConfig, op, status)
	}
	return nil
}

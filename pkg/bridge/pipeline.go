// ABOUTME: Export pipeline of the buffer bridge
// ABOUTME: Sequences decode, create, configure, insert, serialize and cleanup for a file list
package bridge

import (
	"fmt"

	"github.com/op1kit/op1drum/pkg/op1"
)

// File is one input of an export, in slot order
type File struct {
	Name string
	Data []byte
}

// KitOptions configures an exported kit. Nil slices and empty names keep
// the module defaults.
type KitOptions struct {
	FX        string `json:"fx,omitempty" yaml:"fx"`
	FXActive  bool   `json:"fx_active,omitempty" yaml:"fx_active"`
	FXParams  []int  `json:"fx_params,omitempty" yaml:"fx_params"`
	LFO       string `json:"lfo,omitempty" yaml:"lfo"`
	LFOActive bool   `json:"lfo_active,omitempty" yaml:"lfo_active"`
	LFOParams []int  `json:"lfo_params,omitempty" yaml:"lfo_params"`
	Envelope  []int  `json:"envelope,omitempty" yaml:"envelope"`

	Playmodes  []int `json:"playmodes,omitempty" yaml:"playmodes"`
	Directions []int `json:"directions,omitempty" yaml:"directions"`
	Pitches    []int `json:"pitches,omitempty" yaml:"pitches"`
	Volumes    []int `json:"volumes,omitempty" yaml:"volumes"`
	StartTimes []int `json:"start_times,omitempty" yaml:"start_times"`
	EndTimes   []int `json:"end_times,omitempty" yaml:"end_times"`

	// Normalize scales every sample to full scale before insertion
	Normalize bool `json:"normalize,omitempty" yaml:"normalize"`

	// StrictRate rejects samples whose rate differs from the first one
	// instead of resampling them
	StrictRate bool `json:"strict_rate,omitempty" yaml:"strict_rate"`
}

// Export builds one drum file from files. Every decoded sample and the bank
// are released on all paths; a failure is returned as *PipelineError.
func (b *Bridge) Export(files []File, opts KitOptions) ([]byte, error) {
	b.exportMu.Lock()
	defer b.exportMu.Unlock()

	if len(files) == 0 {
		return nil, &PipelineError{Stage: StageValidate, Index: -1,
			Err: fmt.Errorf("%w: %w", ErrSerialize, op1.ErrNoSamples)}
	}
	if len(files) > op1.Slots {
		return nil, &PipelineError{Stage: StageValidate, Index: -1,
			Err: fmt.Errorf("%w: %d files, at most %d", ErrTooManySamples, len(files), op1.Slots)}
	}

	samples := make([]Sample, 0, len(files))
	defer func() {
		for _, s := range samples {
			if err := b.Release(s); err != nil {
				logf("release %v: %v", s, err)
			}
		}
	}()

	for i, f := range files {
		s, err := b.Decode(f.Data)
		if err != nil {
			return nil, &PipelineError{Stage: StageDecode, Index: i, Name: f.Name, Err: err}
		}
		samples = append(samples, s)

		if opts.Normalize {
			if err := b.Normalize(s); err != nil {
				return nil, &PipelineError{Stage: StageDecode, Index: i, Name: f.Name, Err: err}
			}
		}
	}

	bank, err := b.CreateBank()
	if err != nil {
		return nil, &PipelineError{Stage: StageCreate, Index: -1, Err: err}
	}
	defer b.DestroyBank(bank)

	if err := b.Configure(bank, opts); err != nil {
		return nil, &PipelineError{Stage: StageConfigure, Index: -1, Err: err}
	}

	for i, s := range samples {
		if err := b.Insert(bank, s); err != nil {
			return nil, &PipelineError{Stage: StageInsert, Index: i, Name: files[i].Name, Err: err}
		}
	}

	out, err := b.Serialize(bank)
	if err != nil {
		return nil, &PipelineError{Stage: StageSerialize, Index: -1, Err: err}
	}
	return out, nil
}

// Configure applies opts to an open bank
func (b *Bridge) Configure(bank *Bank, opts KitOptions) error {
	if opts.FX != "" {
		if err := b.SetFX(bank, opts.FX); err != nil {
			return err
		}
	}
	if opts.LFO != "" {
		if err := b.SetLFO(bank, opts.LFO); err != nil {
			return err
		}
	}
	if err := b.SetFXActive(bank, opts.FXActive); err != nil {
		return err
	}
	if err := b.SetLFOActive(bank, opts.LFOActive); err != nil {
		return err
	}
	if err := b.SetConformRate(bank, !opts.StrictRate); err != nil {
		return err
	}

	blocks := []struct {
		values []int
		set    func(*Bank, []int) error
	}{
		{opts.FXParams, b.SetFXParams},
		{opts.LFOParams, b.SetLFOParams},
		{opts.Envelope, b.SetEnvelope},
		{opts.Playmodes, b.SetPlaymodes},
		{opts.Directions, b.SetDirections},
		{opts.Pitches, b.SetPitches},
		{opts.Volumes, b.SetVolumes},
		{opts.StartTimes, b.SetStartTimes},
		{opts.EndTimes, b.SetEndTimes},
	}
	for _, block := range blocks {
		if block.values == nil {
			continue
		}
		if err := block.set(bank, block.values); err != nil {
			return err
		}
	}
	return nil
}

// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Sample types and sample conversion functions
// Package audio provides the sample types shared by the decoders, the
// native module and the preview output.
//
// Every decoded sample is mono signed 16-bit PCM. Helpers convert between
// that representation and normalised floats (value / 32768), downmix
// interleaved multi-channel input, peak-normalise, and compute waveform
// envelopes for slot previews.
//
// Example:
//
//	floats := audio.ToFloat(sample.Data)
//	peaks := audio.Waveform(sample.Data, 64)
package audio

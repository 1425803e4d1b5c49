// ABOUTME: Audio resampling package
// ABOUTME: Provides linear interpolation resampler for mono 16-bit PCM
// Package resample converts mono 16-bit PCM between sample rates.
//
// Drum kits are rendered at a single rate; samples recorded at other rates
// are conformed with a linear interpolator before rendering.
//
// Example:
//
//	r := resample.New(48000, 44100)
//	conformed := r.Resample(sample.Data)
package resample

// ABOUTME: Audio encoder package for mono 16-bit samples
// ABOUTME: Provides the Encoder interface with raw PCM and WAV implementations
// Package encode provides encoders for mono 16-bit samples.
//
// Supports: raw PCM in either byte order, WAV
//
// Example:
//
//	encoder, err := encode.NewWAV(sample.Format)
//	data, err := encoder.Encode(sample.Data)
package encode

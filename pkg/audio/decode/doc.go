// ABOUTME: Audio decoder package for multiple container support
// ABOUTME: Provides Decoder interface and implementations for WAV, AIFF, FLAC, MP3, Opus
// Package decode turns complete audio files into mono 16-bit samples.
//
// Supports: WAV (8/16/24/32-bit PCM), AIFF, FLAC, MP3, Ogg Opus
//
// Ogg Opus goes through libopusfile and needs cgo. Builds without cgo
// (including js/wasm) still detect Opus but reject it with ErrUnsupported.
//
// Detect sniffs the container from the leading bytes; Decode dispatches to
// the matching Decoder and downmixes multi-channel input by averaging.
//
// Example:
//
//	sample, err := decode.Decode(fileBytes)
//	fmt.Println(sample.Format.SampleRate, sample.Frames())
package decode

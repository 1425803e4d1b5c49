//go:build !cgo

// ABOUTME: Opus decoder stub for builds without cgo
// ABOUTME: Keeps the Opus codec registered while reporting it as unsupported
package decode

import (
	"fmt"

	"github.com/op1kit/op1drum/pkg/audio"
)

// OpusDecoder reports Ogg Opus input as unsupported without libopusfile
type OpusDecoder struct{}

// NewOpus creates a new Opus decoder
func NewOpus() Decoder {
	return &OpusDecoder{}
}

// Decode always fails; libopusfile needs cgo
func (d *OpusDecoder) Decode(data []byte) (*audio.Sample, error) {
	return nil, fmt.Errorf("%w: opus decoding requires a cgo build", ErrUnsupported)
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

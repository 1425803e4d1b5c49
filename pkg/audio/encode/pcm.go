// ABOUTME: Raw PCM encoder
// ABOUTME: Packs 16-bit samples as little- or big-endian bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/op1kit/op1drum/pkg/audio"
)

// PCMEncoder encodes raw 16-bit PCM in one byte order
type PCMEncoder struct {
	order binary.ByteOrder
}

// NewPCM creates a PCM encoder for format. Only 16-bit PCM is supported.
func NewPCM(format audio.Format, order binary.ByteOrder) (Encoder, error) {
	if format.Codec != "" && format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}
	if format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	if order == nil {
		return nil, fmt.Errorf("byte order required")
	}
	return &PCMEncoder{order: order}, nil
}

// Encode converts samples to PCM bytes
func (e *PCMEncoder) Encode(samples []int16) ([]byte, error) {
	return PCM16(samples, e.order), nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}

// PCM16 packs samples as 16-bit PCM in order
func PCM16(samples []int16, order binary.ByteOrder) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		order.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// DecodePCM16 unpacks 16-bit PCM in order; a trailing odd byte is ignored
func DecodePCM16(data []byte, order binary.ByteOrder) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(order.Uint16(data[i*2:]))
	}
	return out
}

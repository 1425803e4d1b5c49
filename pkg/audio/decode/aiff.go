// ABOUTME: AIFF audio decoder
// ABOUTME: Decodes AIFF files (including OP-1 kits) to mono 16-bit samples using go-audio/aiff
package decode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/aiff"
	"github.com/op1kit/op1drum/pkg/audio"
)

// AIFFDecoder decodes AIFF files
type AIFFDecoder struct{}

// NewAIFF creates a new AIFF decoder
func NewAIFF() Decoder {
	return &AIFFDecoder{}
}

// Decode converts AIFF bytes to a mono sample
func (d *AIFFDecoder) Decode(data []byte) (*audio.Sample, error) {
	decoder := aiff.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid AIFF file")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode AIFF: %w", err)
	}

	channels := int(decoder.NumChans)
	bitDepth := int(decoder.BitDepth)

	return &audio.Sample{
		Format: audio.Format{
			Codec:      CodecAIFF,
			SampleRate: decoder.SampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		SourceChannels: channels,
		Data:           audio.Downmix(buf.Data, channels, bitDepth),
	}, nil
}

// Close releases resources
func (d *AIFFDecoder) Close() error {
	return nil
}

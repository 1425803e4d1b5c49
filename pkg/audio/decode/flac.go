// ABOUTME: FLAC audio decoder
// ABOUTME: Decodes FLAC files frame by frame to mono 16-bit samples using mewkiz/flac
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/op1kit/op1drum/pkg/audio"
)

// FLACDecoder decodes FLAC files
type FLACDecoder struct{}

// NewFLAC creates a new FLAC decoder
func NewFLAC() Decoder {
	return &FLACDecoder{}
}

// Decode converts FLAC bytes to a mono sample
func (d *FLACDecoder) Decode(data []byte) (*audio.Sample, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	bitDepth := int(info.BitsPerSample)

	interleaved := make([]int, 0, int(info.NSamples)*channels)
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("flac frame decode error: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < channels; ch++ {
				interleaved = append(interleaved, int(frame.Subframes[ch].Samples[i]))
			}
		}
	}

	return &audio.Sample{
		Format: audio.Format{
			Codec:      CodecFLAC,
			SampleRate: int(info.SampleRate),
			Channels:   1,
			BitDepth:   16,
		},
		SourceChannels: channels,
		Data:           audio.Downmix(interleaved, channels, bitDepth),
	}, nil
}

// Close releases resources
func (d *FLACDecoder) Close() error {
	return nil
}

//go:build cgo

// ABOUTME: Ogg Opus audio decoder
// ABOUTME: Decodes Ogg Opus files to mono 16-bit samples using hraban/opus streams
package decode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/op1kit/op1drum/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// libopusfile always decodes at 48kHz
	opusSampleRate = 48000

	// Max frame size per channel (120ms at 48kHz)
	opusMaxFrame = 5760
)

// OpusDecoder decodes Ogg Opus files
type OpusDecoder struct{}

// NewOpus creates a new Opus decoder
func NewOpus() Decoder {
	return &OpusDecoder{}
}

// Decode converts Ogg Opus bytes to a mono sample
func (d *OpusDecoder) Decode(data []byte) (*audio.Sample, error) {
	channels, err := opusChannels(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open opus stream: %w", err)
	}
	defer stream.Close()

	var interleaved []int
	pcm := make([]int16, opusMaxFrame*channels)
	for {
		n, err := stream.Read(pcm)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("opus decode failed: %w", err)
		}
		if n == 0 {
			break
		}
		for _, v := range pcm[:n*channels] {
			interleaved = append(interleaved, int(v))
		}
	}

	return &audio.Sample{
		Format: audio.Format{
			Codec:      CodecOpus,
			SampleRate: opusSampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		SourceChannels: channels,
		Data:           audio.Downmix(interleaved, channels, 16),
	}, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}

// opusChannels reads the output channel count from the OpusHead packet
func opusChannels(data []byte) (int, error) {
	idx := bytes.Index(data, []byte("OpusHead"))
	if idx < 0 || idx+10 > len(data) {
		return 0, fmt.Errorf("missing OpusHead packet")
	}
	channels := int(data[idx+9])
	if channels < 1 {
		return 0, fmt.Errorf("invalid opus channel count: %d", channels)
	}
	return channels, nil
}

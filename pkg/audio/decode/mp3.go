// ABOUTME: MP3 audio decoder
// ABOUTME: Decodes MP3 files to mono 16-bit samples using go-mp3
package decode

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
	"github.com/op1kit/op1drum/pkg/audio"
)

// go-mp3 always produces interleaved stereo int16 little-endian
const mp3Channels = 2

// MP3Decoder decodes MP3 files
type MP3Decoder struct{}

// NewMP3 creates a new MP3 decoder
func NewMP3() Decoder {
	return &MP3Decoder{}
}

// Decode converts MP3 bytes to a mono sample
func (d *MP3Decoder) Decode(data []byte) (*audio.Sample, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := len(pcm) / 2
	interleaved := make([]int, numSamples)
	for i := 0; i < numSamples; i++ {
		interleaved[i] = int(int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8))
	}

	return &audio.Sample{
		Format: audio.Format{
			Codec:      CodecMP3,
			SampleRate: decoder.SampleRate(),
			Channels:   1,
			BitDepth:   16,
		},
		SourceChannels: mp3Channels,
		Data:           audio.Downmix(interleaved, mp3Channels, 16),
	}, nil
}

// Close releases decoder resources
func (d *MP3Decoder) Close() error {
	return nil
}

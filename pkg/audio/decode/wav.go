// ABOUTME: WAV audio decoder
// ABOUTME: Decodes RIFF/WAVE PCM files to mono 16-bit samples using go-audio/wav
package decode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/wav"
	"github.com/op1kit/op1drum/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// WAVDecoder decodes WAV files
type WAVDecoder struct{}

// NewWAV creates a new WAV decoder
func NewWAV() Decoder {
	return &WAVDecoder{}
}

// Decode converts WAV bytes to a mono sample
func (d *WAVDecoder) Decode(data []byte) (*audio.Sample, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported WAV encoding: format tag %d", decoder.WavAudioFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	bitDepth := int(decoder.BitDepth)
	channels := int(decoder.NumChans)
	if bitDepth == 8 {
		// 8-bit WAV is unsigned
		for i, v := range buf.Data {
			buf.Data[i] = v - 128
		}
	}

	return &audio.Sample{
		Format: audio.Format{
			Codec:      CodecWAV,
			SampleRate: int(decoder.SampleRate),
			Channels:   1,
			BitDepth:   16,
		},
		SourceChannels: channels,
		Data:           audio.Downmix(buf.Data, channels, bitDepth),
	}, nil
}

// Close releases resources
func (d *WAVDecoder) Close() error {
	return nil
}

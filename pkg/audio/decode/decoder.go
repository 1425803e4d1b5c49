// ABOUTME: Decoder interface definition and container detection
// ABOUTME: Sniffs raw file bytes and dispatches to the matching codec decoder
package decode

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/op1kit/op1drum/pkg/audio"
)

// Codec names reported in audio.Format.Codec
const (
	CodecWAV  = "wav"
	CodecAIFF = "aiff"
	CodecFLAC = "flac"
	CodecMP3  = "mp3"
	CodecOpus = "opus"
)

var (
	// ErrUnsupported is returned when the container is not recognised
	ErrUnsupported = errors.New("unrecognized audio container")

	// ErrEmpty is returned when a file decodes to zero frames
	ErrEmpty = errors.New("audio file contains no frames")
)

// Decoder decodes a complete encoded file to mono 16-bit PCM
type Decoder interface {
	// Decode converts encoded file bytes to a sample
	Decode(data []byte) (*audio.Sample, error)

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for the named codec
func New(codec string) (Decoder, error) {
	switch codec {
	case CodecWAV:
		return NewWAV(), nil
	case CodecAIFF:
		return NewAIFF(), nil
	case CodecFLAC:
		return NewFLAC(), nil
	case CodecMP3:
		return NewMP3(), nil
	case CodecOpus:
		return NewOpus(), nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}

// Detect returns the codec name for the container in data
func Detect(data []byte) (string, error) {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return CodecWAV, nil
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("FORM")) &&
		(bytes.Equal(data[8:12], []byte("AIFF")) || bytes.Equal(data[8:12], []byte("AIFC"))):
		return CodecAIFF, nil
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("fLaC")):
		return CodecFLAC, nil
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		if bytes.Contains(data[:min(len(data), 512)], []byte("OpusHead")) {
			return CodecOpus, nil
		}
		return "", fmt.Errorf("%w: ogg stream without opus header", ErrUnsupported)
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return CodecMP3, nil
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return CodecMP3, nil
	}
	return "", ErrUnsupported
}

// Decode detects the container in data and decodes it
func Decode(data []byte) (*audio.Sample, error) {
	codec, err := Detect(data)
	if err != nil {
		return nil, err
	}

	decoder, err := New(codec)
	if err != nil {
		return nil, err
	}
	defer decoder.Close()

	sample, err := decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(sample.Data) == 0 {
		return nil, fmt.Errorf("%s: %w", codec, ErrEmpty)
	}
	return sample, nil
}

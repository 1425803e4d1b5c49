// ABOUTME: WAV encoder
// ABOUTME: Writes mono 16-bit WAV files with the go-audio encoder
package encode

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/op1kit/op1drum/pkg/audio"
)

// WAVEncoder encodes complete mono 16-bit WAV files
type WAVEncoder struct {
	sampleRate int
}

// NewWAV creates a WAV encoder for format
func NewWAV(format audio.Format) (Encoder, error) {
	if format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", format.SampleRate)
	}
	if format.BitDepth != 0 && format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}
	return &WAVEncoder{sampleRate: format.SampleRate}, nil
}

// Encode returns samples as a WAV file
func (e *WAVEncoder) Encode(samples []int16) ([]byte, error) {
	var buf memFile
	if err := WriteWAV(&buf, e.sampleRate, samples); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// Close releases resources
func (e *WAVEncoder) Close() error {
	return nil
}

// WriteWAV writes samples to w as a mono 16-bit WAV file
func WriteWAV(w io.WriteSeeker, sampleRate int, samples []int16) error {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}

	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wav write failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wav close failed: %w", err)
	}
	return nil
}

// memFile is an in-memory io.WriteSeeker; the wav encoder seeks back to
// patch chunk sizes
type memFile struct {
	data []byte
	pos  int
}

func (m *memFile) Write(p []byte) (int, error) {
	if end := m.pos + len(p); end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	copy(m.data[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(m.pos)
	case io.SeekEnd:
		base = int64(len(m.data))
	default:
		return 0, errors.New("invalid whence")
	}
	pos := base + offset
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = int(pos)
	return pos, nil
}

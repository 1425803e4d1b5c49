// ABOUTME: Unit tests for the PCM and WAV encoders
// ABOUTME: Checks byte order, format validation and WAV round trips through the decoder
package encode

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/audio/decode"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		order       binary.ByteOrder
		errContains string
	}{
		{"valid 16-bit", audio.Format{Codec: "pcm", BitDepth: 16}, binary.LittleEndian, ""},
		{"codec unset", audio.Format{BitDepth: 16}, binary.BigEndian, ""},
		{"invalid codec", audio.Format{Codec: "opus", BitDepth: 16}, binary.LittleEndian, "invalid codec"},
		{"unsupported bit depth", audio.Format{Codec: "pcm", BitDepth: 24}, binary.LittleEndian, "unsupported bit depth"},
		{"no byte order", audio.Format{Codec: "pcm", BitDepth: 16}, nil, "byte order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoder, err := NewPCM(tt.format, tt.order)
			if tt.errContains != "" {
				if err == nil || !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil || encoder == nil {
				t.Errorf("NewPCM() unexpected error = %v", err)
			}
		})
	}
}

func TestPCM16ByteOrder(t *testing.T) {
	samples := []int16{0, 1, -1, 0x1234, -32768, 32767}

	le := PCM16(samples, binary.LittleEndian)
	be := PCM16(samples, binary.BigEndian)
	if len(le) != len(samples)*2 || len(be) != len(samples)*2 {
		t.Fatalf("unexpected sizes %d, %d", len(le), len(be))
	}
	if le[6] != 0x34 || le[7] != 0x12 || be[6] != 0x12 || be[7] != 0x34 {
		t.Errorf("unexpected byte order: le % x, be % x", le[6:8], be[6:8])
	}

	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		got := DecodePCM16(PCM16(samples, order), order)
		for i := range samples {
			if got[i] != samples[i] {
				t.Errorf("%v sample %d: got %d, want %d", order, i, got[i], samples[i])
			}
		}
	}
}

func TestDecodePCM16OddLength(t *testing.T) {
	if got := DecodePCM16([]byte{1, 0, 2}, binary.LittleEndian); len(got) != 1 || got[0] != 1 {
		t.Errorf("unexpected decode %v", got)
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = int16((i*37)%2000 - 1000)
	}

	encoder, err := NewWAV(audio.Format{SampleRate: 22050, BitDepth: 16})
	if err != nil {
		t.Fatalf("NewWAV() failed: %v", err)
	}
	defer encoder.Close()

	data, err := encoder.Encode(samples)
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Fatalf("not a WAV header: %q", data[:12])
	}

	sample, err := decode.Decode(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if sample.Format.SampleRate != 22050 || len(sample.Data) != len(samples) {
		t.Fatalf("unexpected decode: %d Hz, %d frames", sample.Format.SampleRate, len(sample.Data))
	}
	for i := range samples {
		if sample.Data[i] != samples[i] {
			t.Fatalf("frame %d: got %d, want %d", i, sample.Data[i], samples[i])
		}
	}
}

func TestNewWAVInvalid(t *testing.T) {
	if _, err := NewWAV(audio.Format{SampleRate: 0}); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := NewWAV(audio.Format{SampleRate: 44100, BitDepth: 8}); err == nil {
		t.Error("expected error for 8-bit output")
	}
}

func TestMemFileSeek(t *testing.T) {
	var m memFile
	m.Write([]byte("abcdef"))
	if _, err := m.Seek(2, 0); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	m.Write([]byte("XY"))
	if string(m.data) != "abXYef" {
		t.Errorf("unexpected data %q", m.data)
	}
	if _, err := m.Seek(-1, 0); err == nil {
		t.Error("expected error for negative position")
	}
}

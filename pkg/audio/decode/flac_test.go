// ABOUTME: Tests for the FLAC decoder
// ABOUTME: Encodes fixtures with the mewkiz/flac encoder and decodes them back
package decode

import (
	"bytes"
	"testing"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

const flacBlockSize = 4096

// encodeFLAC writes planar channel data as a FLAC stream in fixed-size blocks
func encodeFLAC(t *testing.T, rate, bitDepth int, channels [][]int32) []byte {
	t.Helper()

	nframes := len(channels[0])
	info := &meta.StreamInfo{
		BlockSizeMin:  flacBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(rate),
		NChannels:     uint8(len(channels)),
		BitsPerSample: uint8(bitDepth),
		NSamples:      uint64(nframes),
	}

	layout := frame.ChannelsMono
	if len(channels) == 2 {
		layout = frame.ChannelsLR
	}

	var buf bytes.Buffer
	enc, err := flac.NewEncoder(&buf, info)
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	for offset := 0; offset < nframes; offset += flacBlockSize {
		n := min(flacBlockSize, nframes-offset)
		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(n),
				SampleRate:        uint32(rate),
				Channels:          layout,
				BitsPerSample:     uint8(bitDepth),
			},
		}
		for _, ch := range channels {
			block := make([]int32, n)
			copy(block, ch[offset:offset+n])
			f.Subframes = append(f.Subframes, &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   block,
				NSamples:  n,
			})
		}
		if err := enc.WriteFrame(f); err != nil {
			t.Fatalf("failed to write frame: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("failed to close encoder: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeStereoFLAC(t *testing.T) {
	const nframes = 2 * flacBlockSize
	left := make([]int32, nframes)
	right := make([]int32, nframes)
	for i := range left {
		left[i] = int32(i%2000 - 1000)
		right[i] = int32(3000 - i%500)
	}

	sample, err := Decode(encodeFLAC(t, 44100, 16, [][]int32{left, right}))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if sample.Format.Codec != CodecFLAC {
		t.Errorf("expected codec flac, got %s", sample.Format.Codec)
	}
	if sample.Format.SampleRate != 44100 {
		t.Errorf("expected 44100Hz, got %d", sample.Format.SampleRate)
	}
	if sample.SourceChannels != 2 {
		t.Errorf("expected 2 source channels, got %d", sample.SourceChannels)
	}
	if sample.Frames() != nframes {
		t.Fatalf("expected %d frames, got %d", nframes, sample.Frames())
	}
	for i, v := range sample.Data {
		want := int16((left[i] + right[i]) / 2)
		if v != want {
			t.Fatalf("frame %d: expected %d, got %d", i, want, v)
		}
	}
}

func TestDecode24BitFLAC(t *testing.T) {
	mono := make([]int32, flacBlockSize)
	for i := range mono {
		if i%2 == 0 {
			mono[i] = 0x400000
		} else {
			mono[i] = -0x400000
		}
	}

	sample, err := Decode(encodeFLAC(t, 48000, 24, [][]int32{mono}))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if sample.SourceChannels != 1 || sample.Format.SampleRate != 48000 {
		t.Errorf("unexpected format: %+v, %d channels", sample.Format, sample.SourceChannels)
	}
	if sample.Data[0] != 0x4000 || sample.Data[1] != -0x4000 {
		t.Errorf("unexpected 24-bit scaling: %v", sample.Data[:2])
	}
}

func TestDecodeCorruptFLAC(t *testing.T) {
	if _, err := Decode([]byte("fLaC\x00\x00")); err == nil {
		t.Error("expected error for truncated FLAC stream")
	}
}

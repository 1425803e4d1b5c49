// ABOUTME: Tests for the MP3 decoder
// ABOUTME: Decodes a short MPEG-2 Layer III fixture and checks the downmix
package decode

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/hajimehoshi/go-mp3"
)

func TestDecodeMP3(t *testing.T) {
	raw, err := os.ReadFile("testdata/mono22k.mp3")
	if err != nil {
		t.Fatalf("failed to read fixture: %v", err)
	}

	sample, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if sample.Format.Codec != CodecMP3 {
		t.Errorf("expected codec mp3, got %s", sample.Format.Codec)
	}
	if sample.Format.SampleRate != 22050 {
		t.Errorf("expected 22050Hz, got %d", sample.Format.SampleRate)
	}
	if sample.SourceChannels != 2 {
		t.Errorf("expected 2 source channels, got %d", sample.SourceChannels)
	}

	// Reference decode straight through go-mp3
	dec, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reference decoder failed: %v", err)
	}
	pcm, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("reference decode failed: %v", err)
	}

	if want := len(pcm) / 4; sample.Frames() != want || want == 0 {
		t.Fatalf("expected %d frames, got %d", want, sample.Frames())
	}
	for i, v := range sample.Data {
		l := int(int16(uint16(pcm[i*4]) | uint16(pcm[i*4+1])<<8))
		r := int(int16(uint16(pcm[i*4+2]) | uint16(pcm[i*4+3])<<8))
		if want := int16((l + r) / 2); v != want {
			t.Fatalf("frame %d: expected %d, got %d", i, want, v)
		}
	}
}

func TestDecodeCorruptMP3(t *testing.T) {
	if _, err := Decode([]byte{0xFF, 0xFB, 0x00, 0x00}); err == nil {
		t.Error("expected error for truncated MP3 stream")
	}
}

// ABOUTME: Audio fixtures shared by package tests
// ABOUTME: Encodes synthetic PCM into real WAV files with the WAV encoder
package testaudio

import (
	"math"
	"testing"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/audio/encode"
)

// WAV encodes mono 16-bit PCM as a WAV file. Values outside the int16
// range are clipped.
func WAV(t testing.TB, rate int, data []int) []byte {
	t.Helper()

	enc, err := encode.NewWAV(audio.Format{SampleRate: rate, Channels: 1, BitDepth: 16})
	if err != nil {
		t.Fatalf("failed to create encoder: %v", err)
	}
	defer enc.Close()

	pcm := make([]int16, len(data))
	for i, v := range data {
		pcm[i] = int16(max(audio.MinInt16, min(audio.MaxInt16, v)))
	}

	raw, err := enc.Encode(pcm)
	if err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return raw
}

// Silence returns frames zero samples
func Silence(frames int) []int {
	return make([]int, frames)
}

// Sine returns frames of a sine at freq Hz scaled to amplitude (0..1 of full scale)
func Sine(rate, frames int, freq, amplitude float64) []int {
	out := make([]int, frames)
	for i := range out {
		out[i] = int(math.Round(amplitude * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))))
	}
	return out
}

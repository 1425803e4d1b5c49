// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, decoded mono samples and PCM conversions
package audio

import "math"

const (
	// Int16Scale is the divisor used to normalise 16-bit PCM to [-1, 1)
	Int16Scale = 32768

	MaxInt16 = math.MaxInt16
	MinInt16 = math.MinInt16
)

// Format describes a decoded sample
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Sample is decoded mono 16-bit PCM audio
type Sample struct {
	Format         Format
	SourceChannels int     // Channel count before downmix
	Data           []int16 // One value per frame
}

// Frames returns the number of frames in the sample
func (s *Sample) Frames() int {
	return len(s.Data)
}

// Duration returns the sample length in seconds
func (s *Sample) Duration() float64 {
	if s.Format.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Data)) / float64(s.Format.SampleRate)
}

// Clone returns a deep copy of the sample
func (s *Sample) Clone() *Sample {
	data := make([]int16, len(s.Data))
	copy(data, s.Data)
	return &Sample{
		Format:         s.Format,
		SourceChannels: s.SourceChannels,
		Data:           data,
	}
}

// Int16ToFloat normalises a 16-bit sample to [-1, 1)
func Int16ToFloat(sample int16) float32 {
	return float32(sample) / Int16Scale
}

// FloatToInt16 converts a float sample to 16-bit with clipping
func FloatToInt16(sample float32) int16 {
	v := math.Round(float64(sample) * Int16Scale)
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

// ToFloat converts 16-bit PCM to normalised float samples
func ToFloat(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = Int16ToFloat(s)
	}
	return out
}

// FromFloat converts float samples to 16-bit PCM with clipping
func FromFloat(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = FloatToInt16(s)
	}
	return out
}

// ScaleToInt16 shifts a sample of the given bit depth into the 16-bit range
func ScaleToInt16(sample int, bitDepth int) int16 {
	switch {
	case bitDepth == 16:
		return clampInt16(sample)
	case bitDepth > 16:
		return clampInt16(sample >> (bitDepth - 16))
	case bitDepth > 0:
		return clampInt16(sample << (16 - bitDepth))
	}
	return 0
}

// Downmix averages interleaved channels into one 16-bit channel
func Downmix(interleaved []int, channels, bitDepth int) []int16 {
	if channels < 1 {
		channels = 1
	}
	frames := len(interleaved) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(ScaleToInt16(interleaved[i*channels+ch], bitDepth))
		}
		out[i] = clampInt16(sum / channels)
	}
	return out
}

// Normalize scales samples in place so the loudest peak reaches full scale.
// Silent input is left untouched.
func Normalize(samples []int16) {
	peak := 0
	for _, s := range samples {
		v := int(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return
	}

	gain := float64(MaxInt16) / float64(peak)
	for i, s := range samples {
		samples[i] = clampInt16(int(math.Round(float64(s) * gain)))
	}
}

func clampInt16(v int) int16 {
	if v > MaxInt16 {
		return MaxInt16
	}
	if v < MinInt16 {
		return MinInt16
	}
	return int16(v)
}

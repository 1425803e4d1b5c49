// ABOUTME: Simple linear resampler for converting sample rates
// ABOUTME: Used to conform drum kit samples to a single rate before rendering
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	ratio      float64
}

// New creates a new mono resampler
func New(inputRate, outputRate int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		ratio:      float64(inputRate) / float64(outputRate),
	}
}

// Resample converts a whole mono buffer to the output rate.
// The last input frame is always reproduced so short hits keep their tail.
func (r *Resampler) Resample(input []int16) []int16 {
	if len(input) == 0 {
		return []int16{}
	}
	if r.inputRate == r.outputRate {
		out := make([]int16, len(input))
		copy(out, input)
		return out
	}

	output := make([]int16, r.OutputFrames(len(input)))
	last := len(input) - 1

	for i := range output {
		pos := float64(i) * r.ratio
		idx := int(pos)
		if idx >= last {
			output[i] = input[last]
			continue
		}

		frac := pos - float64(idx)
		interpolated := float64(input[idx])*(1.0-frac) + float64(input[idx+1])*frac
		output[i] = int16(interpolated)
	}

	return output
}

// OutputFrames calculates how many frames Resample produces for inputFrames
func (r *Resampler) OutputFrames(inputFrames int) int {
	if inputFrames == 0 {
		return 0
	}
	n := int(float64(inputFrames) / r.ratio)
	if n < 1 {
		n = 1
	}
	return n
}

// Ratio returns input rate / output rate
func (r *Resampler) Ratio() float64 {
	return r.ratio
}

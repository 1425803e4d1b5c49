// ABOUTME: Waveform envelope computation for slot previews
// ABOUTME: Reduces PCM to per-column energy values scaled to [0, 1]
package audio

// Waveform reduces samples to width columns of mean absolute energy,
// scaled so the loudest column is 1. Returns nil for width <= 0.
func Waveform(samples []int16, width int) []float32 {
	if width <= 0 {
		return nil
	}
	columns := make([]float32, width)
	if len(samples) == 0 {
		return columns
	}

	var peak float32
	for col := 0; col < width; col++ {
		start := col * len(samples) / width
		end := (col + 1) * len(samples) / width
		if end <= start {
			end = start + 1
		}
		if end > len(samples) {
			end = len(samples)
		}
		if start >= end {
			continue
		}

		var sum float32
		for _, s := range samples[start:end] {
			v := Int16ToFloat(s)
			if v < 0 {
				v = -v
			}
			sum += v
		}
		columns[col] = sum / float32(end-start)
		if columns[col] > peak {
			peak = columns[col]
		}
	}

	if peak > 0 {
		for i := range columns {
			columns[i] /= peak
		}
	}
	return columns
}

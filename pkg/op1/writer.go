// ABOUTME: OP-1 drum kit renderer
// ABOUTME: Concatenates samples and writes a mono 16-bit AIFF with an op-1 APPL chunk
package op1

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/audio/encode"
	"github.com/op1kit/op1drum/pkg/audio/resample"
)

// AppSignature identifies the APPL chunk the OP-1 reads
const AppSignature = "op-1"

// Debug enables verbose render logging
var Debug bool

// Render writes the kit and its samples as an OP-1 drum AIFF
func Render(k *Kit, samples []*audio.Sample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if len(samples) > Slots {
		return nil, ErrTooManySamples
	}

	rate := samples[0].Format.SampleRate
	data, err := conform(samples, rate, k.ConformRate)
	if err != nil {
		return nil, err
	}

	// Each sample is followed by one zero frame
	total := 0
	for _, d := range data {
		total += len(d) + 1
	}
	if total > MaxFrames*rate/NativeRate {
		return nil, fmt.Errorf("%w: %d frames at %dHz", ErrTooLong, total, rate)
	}

	start, end := slotTimes(k, data)
	descriptor, err := json.Marshal(newMetadata(k, start, end))
	if err != nil {
		return nil, fmt.Errorf("failed to encode descriptor: %w", err)
	}
	if Debug {
		log.Printf("op1: json chunk: %s", descriptor)
	}

	pcm := make([]int16, 0, total)
	for _, d := range data {
		pcm = append(pcm, d...)
		pcm = append(pcm, 0)
	}

	return writeAIFF(rate, descriptor, pcm), nil
}

// conform returns the PCM of every sample at the given rate
func conform(samples []*audio.Sample, rate int, resampleMismatched bool) ([][]int16, error) {
	data := make([][]int16, len(samples))
	for i, s := range samples {
		if s.Format.SampleRate == rate {
			data[i] = s.Data
			continue
		}
		if !resampleMismatched {
			return nil, fmt.Errorf("%w: slot %d is %dHz, kit is %dHz",
				ErrRateMismatch, i, s.Format.SampleRate, rate)
		}
		if Debug {
			log.Printf("op1: resampling slot %d from %dHz to %dHz", i, s.Format.SampleRate, rate)
		}
		data[i] = resample.New(s.Format.SampleRate, rate).Resample(s.Data)
	}
	return data, nil
}

// slotTimes computes OP-1 start/end times for all slots. Unused slots repeat
// the last used slot.
func slotTimes(k *Kit, data [][]int16) ([]int64, []int64) {
	start := make([]int64, Slots)
	end := make([]int64, Slots)

	if k.explicitTimes() {
		for i := 0; i < Slots; i++ {
			start[i] = FrameToTime(k.StartTimes[i])
			end[i] = FrameToTime(k.EndTimes[i])
		}
		return start, end
	}

	offset := 0
	for i, d := range data {
		start[i] = FrameToTime(offset)
		end[i] = FrameToTime(offset + len(d))
		offset += len(d) + 1
	}
	last := len(data) - 1
	for i := len(data); i < Slots; i++ {
		start[i] = start[last]
		end[i] = end[last]
	}
	return start, end
}

func writeAIFF(rate int, descriptor []byte, pcm []int16) []byte {
	// Keep the APPL chunk even-sized; JSON tolerates trailing whitespace
	if len(descriptor)%2 == 1 {
		descriptor = append(descriptor, ' ')
	}
	applSize := len(AppSignature) + len(descriptor)
	ssndSize := 8 + len(pcm)*2
	formSize := 4 + (8 + 18) + (8 + applSize) + (8 + ssndSize)

	buf := bytes.NewBuffer(make([]byte, 0, 8+formSize))
	be := binary.BigEndian

	buf.WriteString("FORM")
	binary.Write(buf, be, uint32(formSize))
	buf.WriteString("AIFF")

	buf.WriteString("COMM")
	binary.Write(buf, be, uint32(18))
	binary.Write(buf, be, uint16(1))
	binary.Write(buf, be, uint32(len(pcm)))
	binary.Write(buf, be, uint16(16))
	ext := encodeExtended(rate)
	buf.Write(ext[:])

	buf.WriteString("APPL")
	binary.Write(buf, be, uint32(applSize))
	buf.WriteString(AppSignature)
	buf.Write(descriptor)

	buf.WriteString("SSND")
	binary.Write(buf, be, uint32(ssndSize))
	binary.Write(buf, be, uint32(0)) // offset
	binary.Write(buf, be, uint32(0)) // block size
	buf.Write(encode.PCM16(pcm, be))

	return buf.Bytes()
}

// encodeExtended encodes an integer rate as an 80-bit IEEE extended float
func encodeExtended(rate int) [10]byte {
	var b [10]byte
	if rate <= 0 {
		return b
	}
	mantissa := uint64(rate)
	exp := 63
	for mantissa&(1<<63) == 0 {
		mantissa <<= 1
		exp--
	}
	binary.BigEndian.PutUint16(b[0:], uint16(16383+exp))
	binary.BigEndian.PutUint64(b[2:], mantissa)
	return b
}

// decodeExtended decodes an 80-bit IEEE extended float to an integer rate
func decodeExtended(b []byte) int {
	exp := int(binary.BigEndian.Uint16(b[0:])&0x7FFF) - 16383
	mantissa := binary.BigEndian.Uint64(b[2:])
	if exp < 0 || exp > 63 {
		return 0
	}
	return int(mantissa >> (63 - exp))
}

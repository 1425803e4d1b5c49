// ABOUTME: Sample entry points of the native module
// ABOUTME: Decodes buffers into module memory and answers rate/length/data queries
package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/audio/decode"
	"github.com/op1kit/op1drum/pkg/audio/encode"
)

// SampleLoadBuffer decodes length bytes at buf and writes the new sample
// handle to outSample
func (m *Module) SampleLoadBuffer(buf, length, outSample uint32) int32 {
	if buf == 0 || outSample == 0 {
		return StatusArgumentError
	}

	raw, err := m.mem.Read(buf, length)
	if err != nil {
		logf("sample load: %v", err)
		return StatusArgumentError
	}

	sample, err := safeDecode(raw)
	if err != nil {
		logf("sample load: buffer(%#x) %v", buf, err)
		return StatusError
	}
	logf("buffer(%#x) - codec: %s - rate: %d - frame count: %d",
		buf, sample.Format.Codec, sample.Format.SampleRate, sample.Frames())

	handle, ok := m.storeSample(sample)
	if !ok {
		return StatusError
	}
	if err := m.mem.PutUint32(outSample, handle); err != nil {
		m.destroySample(handle)
		return StatusArgumentError
	}
	return StatusOK
}

// SampleGetRate writes the sample rate of sample to outRate
func (m *Module) SampleGetRate(sample, outRate uint32) int32 {
	if !m.validSample(sample) || outRate == 0 {
		return StatusArgumentError
	}
	rate, err := m.mem.Uint32(sample + sampleRateOff)
	if err != nil {
		return StatusError
	}
	if err := m.mem.PutUint32(outRate, rate); err != nil {
		return StatusArgumentError
	}
	return StatusOK
}

// SampleGetLength writes the frame count of sample to outFrames
func (m *Module) SampleGetLength(sample, outFrames uint32) int32 {
	if !m.validSample(sample) || outFrames == 0 {
		return StatusArgumentError
	}
	frames, err := m.mem.Uint32(sample + sampleFramesOff)
	if err != nil || frames == 0 {
		return StatusError
	}
	if err := m.mem.PutUint32(outFrames, frames); err != nil {
		return StatusArgumentError
	}
	return StatusOK
}

// SampleGetData writes the address of the sample's int16 PCM to outData and
// its frame count to outCount. The PCM stays owned by the sample.
func (m *Module) SampleGetData(sample, outData, outCount uint32) int32 {
	if !m.validSample(sample) || outData == 0 || outCount == 0 {
		return StatusArgumentError
	}
	frames, err := m.mem.Uint32(sample + sampleFramesOff)
	if err != nil || frames == 0 {
		return StatusError
	}
	data, err := m.mem.Uint32(sample + sampleDataOff)
	if err != nil {
		return StatusError
	}
	if m.mem.PutUint32(outData, data) != nil || m.mem.PutUint32(outCount, frames) != nil {
		return StatusArgumentError
	}
	return StatusOK
}

// SampleNormalize scales the sample's PCM in place to full scale
func (m *Module) SampleNormalize(sample uint32) int32 {
	if !m.validSample(sample) {
		return StatusArgumentError
	}
	s, err := m.loadSample(sample)
	if err != nil {
		return StatusError
	}
	audio.Normalize(s.Data)

	data, err := m.mem.Uint32(sample + sampleDataOff)
	if err != nil {
		logf("sample normalize: %v", err)
		return StatusError
	}
	if err := m.mem.Write(data, encode.PCM16(s.Data, binary.LittleEndian)); err != nil {
		logf("sample normalize: %v", err)
		return StatusError
	}
	return StatusOK
}

// SampleDestroy releases the sample and its PCM
func (m *Module) SampleDestroy(sample uint32) int32 {
	if !m.validSample(sample) {
		return StatusArgumentError
	}
	m.destroySample(sample)
	return StatusOK
}

func (m *Module) validSample(sample uint32) bool {
	if sample == 0 {
		return false
	}
	_, ok := m.samples[sample]
	return ok
}

func (m *Module) storeSample(s *audio.Sample) (uint32, bool) {
	header := m.mem.Malloc(sampleHeaderSize)
	if header == 0 {
		logf("out of memory for sample header")
		return 0, false
	}
	pcm := encode.PCM16(s.Data, binary.LittleEndian)
	data := m.mem.Malloc(uint32(len(pcm)))
	if data == 0 {
		logf("out of memory for %d bytes of PCM", len(pcm))
		m.mem.Free(header)
		return 0, false
	}

	var hdr [sampleHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[sampleRateOff:], uint32(s.Format.SampleRate))
	binary.LittleEndian.PutUint32(hdr[sampleFramesOff:], uint32(len(s.Data)))
	binary.LittleEndian.PutUint32(hdr[sampleDataOff:], data)
	binary.LittleEndian.PutUint32(hdr[sampleChansOff:], uint32(s.SourceChannels))
	if err := m.mem.Write(header, hdr[:]); err != nil {
		logf("sample store: %v", err)
		m.mem.Free(data)
		m.mem.Free(header)
		return 0, false
	}
	if err := m.mem.Write(data, pcm); err != nil {
		logf("sample store: %v", err)
		m.mem.Free(data)
		m.mem.Free(header)
		return 0, false
	}

	m.samples[header] = sampleInfo{codec: s.Format.Codec}
	return header, true
}

// loadSample copies a sample out of module memory
func (m *Module) loadSample(sample uint32) (*audio.Sample, error) {
	hdr, err := m.mem.Read(sample, sampleHeaderSize)
	if err != nil {
		return nil, err
	}
	rate := binary.LittleEndian.Uint32(hdr[sampleRateOff:])
	frames := binary.LittleEndian.Uint32(hdr[sampleFramesOff:])
	data := binary.LittleEndian.Uint32(hdr[sampleDataOff:])
	chans := binary.LittleEndian.Uint32(hdr[sampleChansOff:])

	pcm, err := m.mem.View(data, frames*2)
	if err != nil {
		return nil, err
	}
	return &audio.Sample{
		Format: audio.Format{
			Codec:      m.samples[sample].codec,
			SampleRate: int(rate),
			Channels:   1,
			BitDepth:   16,
		},
		SourceChannels: int(chans),
		Data:           encode.DecodePCM16(pcm, binary.LittleEndian),
	}, nil
}

func (m *Module) destroySample(sample uint32) {
	if data, err := m.mem.Uint32(sample + sampleDataOff); err == nil {
		m.mem.Free(data)
	}
	m.mem.Free(sample)
	delete(m.samples, sample)
}

// safeDecode turns decoder panics on hostile input into errors
func safeDecode(raw []byte) (sample *audio.Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return decode.Decode(raw)
}

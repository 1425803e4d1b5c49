// ABOUTME: Decoded sample handles of the buffer bridge
// ABOUTME: Decode, rate/length/data queries, normalization and release
package bridge

import (
	"encoding/binary"
	"fmt"

	"github.com/op1kit/op1drum/pkg/audio"
)

// Sample is a handle to a decoded sample owned by the module. The zero
// value is not a valid handle.
type Sample struct {
	id  uint64
	ptr uint32
}

// ID returns the bridge-issued serial of the handle
func (s Sample) ID() uint64 {
	return s.id
}

// Valid reports whether the handle came from a successful Decode
func (s Sample) Valid() bool {
	return s.id != 0 && s.ptr != 0
}

func (s Sample) String() string {
	return fmt.Sprintf("sample#%d(%#x)", s.id, s.ptr)
}

// Decode copies raw into module memory and decodes it. raw is not retained.
func (b *Bridge) Decode(raw []byte) (Sample, error) {
	if len(raw) == 0 {
		return Sample{}, fmt.Errorf("%w: empty input", ErrDecode)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.scratch()
	defer s.release()

	buf, err := s.copyIn(raw)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	out, err := s.alloc(4)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if status := b.mod.SampleLoadBuffer(buf, uint32(len(raw)), out); status != 0 {
		return Sample{}, statusErr(ErrDecode, "sample_load_buffer", status)
	}
	ptr, err := s.readUint32(out)
	if err != nil || ptr == 0 {
		return Sample{}, fmt.Errorf("%w: module returned no sample", ErrDecode)
	}

	sample := Sample{id: b.nextSerial(), ptr: ptr}
	b.samples[sample.id] = &sampleEntry{ptr: ptr}
	logf("decoded %d bytes into %v", len(raw), sample)
	return sample, nil
}

// SampleRate returns the sample rate in Hz
func (b *Bridge) SampleRate(sample Sample) (int, error) {
	return b.queryUint32(sample, "sample_get_rate", b.mod.SampleGetRate)
}

// SampleFrames returns the number of frames
func (b *Bridge) SampleFrames(sample Sample) (int, error) {
	return b.queryUint32(sample, "sample_get_length", b.mod.SampleGetLength)
}

func (b *Bridge) queryUint32(sample Sample, op string, call func(sample, out uint32) int32) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(sample); err != nil {
		return 0, err
	}

	s := b.scratch()
	defer s.release()

	out, err := s.alloc(4)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if status := call(sample.ptr, out); status != 0 {
		return 0, statusErr(ErrQuery, op, status)
	}
	v, err := s.readUint32(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return int(v), nil
}

// SampleData returns the sample's PCM scaled to [-1, 1)
func (b *Bridge) SampleData(sample Sample) ([]float32, error) {
	pcm, err := b.SamplePCM(sample)
	if err != nil {
		return nil, err
	}
	return audio.ToFloat(pcm), nil
}

// SamplePCM returns a copy of the sample's 16-bit PCM
func (b *Bridge) SamplePCM(sample Sample) ([]int16, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(sample); err != nil {
		return nil, err
	}

	s := b.scratch()
	defer s.release()

	out, err := s.alloc(8)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if status := b.mod.SampleGetData(sample.ptr, out, out+4); status != 0 {
		return nil, statusErr(ErrQuery, "sample_get_data", status)
	}
	data, err := s.readUint32(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	count, err := s.readUint32(out + 4)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	raw, err := b.mod.Read(data, count*2)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	pcm := make([]int16, count)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm, nil
}

// Normalize scales the sample in place so its peak reaches full scale.
// It must happen before the sample is inserted into a bank.
func (b *Bridge) Normalize(sample Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, err := b.lookup(sample)
	if err != nil {
		return err
	}
	if entry.inserted != nil {
		return fmt.Errorf("%w: %v already inserted", ErrState, sample)
	}
	if status := b.mod.SampleNormalize(sample.ptr); status != 0 {
		return statusErr(ErrQuery, "sample_normalize", status)
	}
	return nil
}

// Release frees the sample in the module. Releasing after insertion is
// safe: banks keep their own copy.
func (b *Bridge) Release(sample Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(sample); err != nil {
		return err
	}
	delete(b.samples, sample.id)
	if status := b.mod.SampleDestroy(sample.ptr); status != 0 {
		return &StatusError{Op: "sample_destroy", Status: status}
	}
	logf("released %v", sample)
	return nil
}

// lookup checks that sample is a live handle issued by this bridge
func (b *Bridge) lookup(sample Sample) (*sampleEntry, error) {
	if !sample.Valid() {
		return nil, fmt.Errorf("%w: invalid sample handle", ErrState)
	}
	entry, ok := b.samples[sample.id]
	if !ok || entry.ptr != sample.ptr {
		return nil, fmt.Errorf("%w: %v is released or unknown", ErrState, sample)
	}
	return entry, nil
}

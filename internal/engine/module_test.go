// ABOUTME: Tests for the native module entry points
// ABOUTME: Drives the ABI the way a bridge does and checks status codes and memory use
package engine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/op1kit/op1drum/internal/testaudio"
	"github.com/op1kit/op1drum/pkg/op1"
)

// load copies file into the module and decodes it, returning the sample handle
func load(t *testing.T, m *Module, file []byte) uint32 {
	t.Helper()
	buf := m.Malloc(uint32(len(file)))
	out := m.Malloc(4)
	defer m.Free(buf)
	defer m.Free(out)

	m.Memory().Write(buf, file)
	if status := m.SampleLoadBuffer(buf, uint32(len(file)), out); status != StatusOK {
		t.Fatalf("SampleLoadBuffer status = %d", status)
	}
	sample, _ := m.Memory().Uint32(out)
	return sample
}

func putInt32s(t *testing.T, m *Module, values []int32) uint32 {
	t.Helper()
	ptr := m.Malloc(uint32(len(values) * 4))
	b := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(v))
	}
	m.Memory().Write(ptr, b)
	return ptr
}

func TestSampleLoadAndQuery(t *testing.T) {
	m := New()
	sample := load(t, m, testaudio.WAV(t, 22050, []int{100, -100, 200, -200}))

	out := m.Malloc(8)
	defer m.Free(out)

	if status := m.SampleGetRate(sample, out); status != StatusOK {
		t.Fatalf("SampleGetRate status = %d", status)
	}
	if rate, _ := m.Memory().Uint32(out); rate != 22050 {
		t.Errorf("rate = %d, want 22050", rate)
	}

	if status := m.SampleGetLength(sample, out); status != StatusOK {
		t.Fatalf("SampleGetLength status = %d", status)
	}
	if frames, _ := m.Memory().Uint32(out); frames != 4 {
		t.Errorf("frames = %d, want 4", frames)
	}

	if status := m.SampleGetData(sample, out, out+4); status != StatusOK {
		t.Fatalf("SampleGetData status = %d", status)
	}
	data, _ := m.Memory().Uint32(out)
	count, _ := m.Memory().Uint32(out + 4)
	raw, err := m.Memory().Read(data, count*2)
	if err != nil {
		t.Fatalf("failed to read PCM: %v", err)
	}
	want := []int16{100, -100, 200, -200}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(raw[i*2:])); got != w {
			t.Errorf("frame %d = %d, want %d", i, got, w)
		}
	}

	if status := m.SampleDestroy(sample); status != StatusOK {
		t.Errorf("SampleDestroy status = %d", status)
	}
	if m.LiveSamples() != 0 {
		t.Errorf("expected no live samples, got %d", m.LiveSamples())
	}
}

func TestSampleLoadRejectsGarbage(t *testing.T) {
	m := New()
	file := []byte("this is not audio at all")
	buf := m.Malloc(uint32(len(file)))
	out := m.Malloc(4)
	m.Memory().Write(buf, file)

	if status := m.SampleLoadBuffer(buf, uint32(len(file)), out); status != StatusError {
		t.Errorf("status = %d, want %d", status, StatusError)
	}
	if v, _ := m.Memory().Uint32(out); v != 0 {
		t.Errorf("out-parameter written on failure: %#x", v)
	}
	if m.LiveSamples() != 0 {
		t.Errorf("expected no live samples, got %d", m.LiveSamples())
	}
}

func TestArgumentErrors(t *testing.T) {
	m := New()
	out := m.Malloc(4)

	tests := []struct {
		name   string
		status int32
	}{
		{"load null buffer", m.SampleLoadBuffer(0, 4, out)},
		{"load null out", m.SampleLoadBuffer(out, 4, 0)},
		{"rate unknown sample", m.SampleGetRate(out, out)},
		{"data unknown sample", m.SampleGetData(1234, out, out)},
		{"destroy unknown sample", m.SampleDestroy(0)},
		{"init null out", m.DrumInit(0)},
		{"add to unknown drum", m.DrumAddSample(out, out)},
		{"write unknown drum", m.DrumWriteBuffer(out, out, out)},
		{"destroy unknown drum", m.DrumDestroy(out)},
		{"fx unknown drum", m.DrumSetFXActive(out, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.status != StatusArgumentError {
				t.Errorf("status = %d, want %d", tt.status, StatusArgumentError)
			}
		})
	}
}

func TestSampleNormalize(t *testing.T) {
	m := New()
	sample := load(t, m, testaudio.WAV(t, 44100, []int{1000, -2000, 500}))

	if status := m.SampleNormalize(sample); status != StatusOK {
		t.Fatalf("SampleNormalize status = %d", status)
	}
	s, err := m.loadSample(sample)
	if err != nil {
		t.Fatalf("loadSample failed: %v", err)
	}
	peak := 0
	for _, v := range s.Data {
		if a := int(v); a > peak {
			peak = a
		} else if -a > peak {
			peak = -a
		}
	}
	if peak != 32767 {
		t.Errorf("peak after normalize = %d, want 32767", peak)
	}
}

func TestSampleNormalizeCorruptData(t *testing.T) {
	m := New()
	sample := load(t, m, testaudio.WAV(t, 44100, []int{1000, -2000, 500}))

	// Point the PCM past the end of memory
	m.Memory().PutUint32(sample+sampleDataOff, m.Memory().Size())
	if status := m.SampleNormalize(sample); status != StatusError {
		t.Errorf("SampleNormalize status = %d, want %d", status, StatusError)
	}
}

func TestSampleLoadOutOfMemory(t *testing.T) {
	file := testaudio.WAV(t, 44100, make([]int, 4000))
	aligned := (uint32(len(file)) + alignment - 1) &^ (alignment - 1)

	// Room for the file, the out slot and the sample header but not the PCM
	m := NewWithLimit(heapBase + aligned + 8 + sampleHeaderSize + 1024)
	buf := m.Malloc(uint32(len(file)))
	out := m.Malloc(4)
	if buf == 0 || out == 0 {
		t.Fatal("failed to allocate input")
	}
	m.Memory().Write(buf, file)

	if status := m.SampleLoadBuffer(buf, uint32(len(file)), out); status != StatusError {
		t.Fatalf("SampleLoadBuffer status = %d, want %d", status, StatusError)
	}
	if n := m.Memory().Allocated(); n != 2 {
		t.Errorf("expected only the 2 input allocations to remain, got %d", n)
	}
	if m.LiveSamples() != 0 {
		t.Errorf("expected no live samples, got %d", m.LiveSamples())
	}
}

func TestDrumRender(t *testing.T) {
	m := New()
	a := load(t, m, testaudio.WAV(t, 44100, testaudio.Sine(44100, 441, 440, 0.5)))
	b := load(t, m, testaudio.WAV(t, 44100, testaudio.Silence(100)))

	slot := m.Malloc(8)
	if status := m.DrumInit(slot); status != StatusOK {
		t.Fatalf("DrumInit status = %d", status)
	}
	ctx, _ := m.Memory().Uint32(slot)

	for _, s := range []uint32{a, b} {
		if status := m.DrumAddSample(ctx, s); status != StatusOK {
			t.Fatalf("DrumAddSample status = %d", status)
		}
	}
	// The drum keeps copies
	m.SampleDestroy(a)
	m.SampleDestroy(b)

	if status := m.DrumWriteBuffer(ctx, slot, slot+4); status != StatusOK {
		t.Fatalf("DrumWriteBuffer status = %d", status)
	}
	data, _ := m.Memory().Uint32(slot)
	length, _ := m.Memory().Uint32(slot + 4)
	out, err := m.Memory().Read(data, length)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	m.Free(data)

	if !bytes.HasPrefix(out, []byte("FORM")) {
		t.Errorf("output starts with %q, want FORM", out[:4])
	}
	drum, err := op1.ReadDrum(out)
	if err != nil {
		t.Fatalf("ReadDrum failed: %v", err)
	}
	if drum.UsedSlots() != 2 {
		t.Errorf("used slots = %d, want 2", drum.UsedSlots())
	}

	if status := m.DrumDestroy(ctx); status != StatusOK {
		t.Errorf("DrumDestroy status = %d", status)
	}
	m.Free(slot)
	if n := m.Memory().Allocated(); n != 0 {
		t.Errorf("expected no live allocations, got %d", n)
	}
}

func TestDrumWriteEmptyFails(t *testing.T) {
	m := New()
	slot := m.Malloc(8)
	m.DrumInit(slot)
	ctx, _ := m.Memory().Uint32(slot)

	if status := m.DrumWriteBuffer(ctx, slot, slot+4); status != StatusError {
		t.Errorf("status = %d, want %d", status, StatusError)
	}
}

func TestDrumRejectsTooManySamples(t *testing.T) {
	m := New()
	sample := load(t, m, testaudio.WAV(t, 44100, testaudio.Silence(10)))
	slot := m.Malloc(4)
	m.DrumInit(slot)
	ctx, _ := m.Memory().Uint32(slot)

	for i := 0; i < op1.Slots; i++ {
		if status := m.DrumAddSample(ctx, sample); status != StatusOK {
			t.Fatalf("add %d status = %d", i, status)
		}
	}
	if status := m.DrumAddSample(ctx, sample); status != StatusError {
		t.Errorf("25th add status = %d, want %d", status, StatusError)
	}
}

func TestDrumSetters(t *testing.T) {
	m := New()
	slot := m.Malloc(4)
	m.DrumInit(slot)
	ctx, _ := m.Memory().Uint32(slot)
	d := m.drums[ctx]

	name := m.Malloc(8)
	m.Memory().Write(name, []byte("delay\x00"))
	if status := m.DrumSetFX(ctx, name); status != StatusOK {
		t.Errorf("DrumSetFX status = %d", status)
	}
	if d.kit.FXType != "delay" {
		t.Errorf("fx = %q, want delay", d.kit.FXType)
	}

	m.Memory().Write(name, []byte("laser\x00"))
	if status := m.DrumSetFX(ctx, name); status != StatusError {
		t.Errorf("invalid fx status = %d, want %d", status, StatusError)
	}
	if status := m.DrumSetLFO(ctx, name); status != StatusError {
		t.Errorf("invalid lfo status = %d, want %d", status, StatusError)
	}

	m.DrumSetFXActive(ctx, 1)
	m.DrumSetLFOActive(ctx, 1)
	if !d.kit.FXActive || !d.kit.LFOActive {
		t.Error("expected fx and lfo to be active")
	}

	params := putInt32s(t, m, []int32{1, 2, 3, 4, 5, 6, 7, 8})
	if status := m.DrumSetFXParams(ctx, params); status != StatusOK {
		t.Fatalf("DrumSetFXParams status = %d", status)
	}
	if d.kit.FXParams != [8]int{1, 2, 3, 4, 5, 6, 7, 8} {
		t.Errorf("fx params = %v", d.kit.FXParams)
	}

	pitches := make([]int32, op1.Slots)
	for i := range pitches {
		pitches[i] = int32(-i * 100)
	}
	ptr := putInt32s(t, m, pitches)
	if status := m.DrumSetPitches(ctx, ptr); status != StatusOK {
		t.Fatalf("DrumSetPitches status = %d", status)
	}
	if d.kit.Pitches[23] != -2300 {
		t.Errorf("pitch 23 = %d, want -2300", d.kit.Pitches[23])
	}

	if status := m.DrumSetVolumes(ctx, m.Memory().Size()-4); status != StatusArgumentError {
		t.Errorf("out of bounds block status = %d, want %d", status, StatusArgumentError)
	}
}

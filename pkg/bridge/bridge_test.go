// ABOUTME: Tests for the buffer bridge
// ABOUTME: Decode/query/insert/serialize behavior, handle states and leak checks
package bridge

import (
	"bytes"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/op1kit/op1drum/internal/engine"
	"github.com/op1kit/op1drum/internal/testaudio"
	"github.com/op1kit/op1drum/pkg/op1"
)

func newBridge(t *testing.T) (*Bridge, *engine.Module) {
	t.Helper()
	m := engine.New()
	return New(m), m
}

func decode(t *testing.T, b *Bridge, file []byte) Sample {
	t.Helper()
	s, err := b.Decode(file)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return s
}

// assertNoLeaks checks that only the given number of module allocations is live
func assertNoLeaks(t *testing.T, m *engine.Module) {
	t.Helper()
	if n := m.Memory().Allocated(); n != 0 {
		t.Errorf("expected no live module allocations, got %d", n)
	}
}

func TestDecodeSilence(t *testing.T) {
	b, m := newBridge(t)
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Silence(44100)))

	rate, err := b.SampleRate(s)
	if err != nil {
		t.Fatalf("SampleRate failed: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %d, want 44100", rate)
	}

	data, err := b.SampleData(s)
	if err != nil {
		t.Fatalf("SampleData failed: %v", err)
	}
	if len(data) != 44100 {
		t.Fatalf("expected 44100 samples, got %d", len(data))
	}
	for i, v := range data {
		if v != 0 {
			t.Fatalf("sample %d = %f, want 0", i, v)
		}
	}

	frames, err := b.SampleFrames(s)
	if err != nil || frames != 44100 {
		t.Errorf("SampleFrames = %d, %v", frames, err)
	}

	if err := b.Release(s); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	assertNoLeaks(t, m)
}

func TestSampleDataRange(t *testing.T) {
	b, _ := newBridge(t)
	pcm := testaudio.Sine(44100, 4410, 1000, 1.0)
	pcm = append(pcm, -32768, 32767)
	s := decode(t, b, testaudio.WAV(t, 44100, pcm))

	data, err := b.SampleData(s)
	if err != nil {
		t.Fatalf("SampleData failed: %v", err)
	}
	for i, v := range data {
		if v < -1 || v >= 1 {
			t.Fatalf("sample %d = %f outside [-1, 1)", i, v)
		}
	}
	if data[len(data)-2] != -1 {
		t.Errorf("minimum sample = %f, want -1", data[len(data)-2])
	}
}

func TestSampleDataHalfScaleSine(t *testing.T) {
	b, _ := newBridge(t)
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(44100, 44100, 440, 0.5)))

	data, err := b.SampleData(s)
	if err != nil {
		t.Fatalf("SampleData failed: %v", err)
	}
	const tolerance = 1.0 / 32768
	peak := 0.0
	for i, v := range data {
		if math.Abs(float64(v)) > 0.5+tolerance {
			t.Fatalf("sample %d = %f exceeds half scale", i, v)
		}
		peak = math.Max(peak, math.Abs(float64(v)))
	}
	if peak < 0.49 {
		t.Errorf("peak = %f, expected close to 0.5", peak)
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"text", []byte("definitely not an audio file")},
		{"truncated wav", []byte("RIFF\x24\x00\x00\x00WAVEfmt ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, m := newBridge(t)
			s, err := b.Decode(tt.input)
			if !errors.Is(err, ErrDecode) {
				t.Fatalf("expected ErrDecode, got %v", err)
			}
			if s.Valid() {
				t.Errorf("expected no handle, got %v", s)
			}
			if b.LiveSamples() != 0 {
				t.Errorf("expected no live samples, got %d", b.LiveSamples())
			}
			assertNoLeaks(t, m)
		})
	}
}

func TestDecodeReportsStatus(t *testing.T) {
	b, _ := newBridge(t)
	_, err := b.Decode([]byte("garbage!"))

	var status *StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if status.Status != engine.StatusError || status.Op != "sample_load_buffer" {
		t.Errorf("unexpected status error: %+v", status)
	}
}

func TestBankLifecycle(t *testing.T) {
	for n := 1; n <= 4; n++ {
		b, m := newBridge(t)
		samples := make([]Sample, n)
		for i := range samples {
			samples[i] = decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(44100, 1000*(i+1), 220, 0.3)))
		}

		bank, err := b.CreateBank()
		if err != nil {
			t.Fatalf("CreateBank failed: %v", err)
		}
		for _, s := range samples {
			if err := b.Insert(bank, s); err != nil {
				t.Fatalf("Insert failed: %v", err)
			}
		}
		if bank.Len() != n {
			t.Errorf("bank holds %d samples, want %d", bank.Len(), n)
		}

		out, err := b.Serialize(bank)
		if err != nil {
			t.Fatalf("Serialize with %d samples failed: %v", n, err)
		}
		if bank.State() != BankSerialized {
			t.Errorf("state = %v, want serialized", bank.State())
		}
		b.DestroyBank(bank)
		if bank.State() != BankClosed {
			t.Errorf("state = %v, want closed", bank.State())
		}

		drum, err := op1.ReadDrum(out)
		if err != nil {
			t.Fatalf("ReadDrum failed: %v", err)
		}
		if drum.UsedSlots() != n {
			t.Errorf("used slots = %d, want %d", drum.UsedSlots(), n)
		}

		for _, s := range samples {
			if err := b.Release(s); err != nil {
				t.Errorf("Release failed: %v", err)
			}
		}
		assertNoLeaks(t, m)
	}
}

func TestSerializeTwoSamplesMagic(t *testing.T) {
	b, _ := newBridge(t)
	a := decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(44100, 2000, 440, 0.5)))
	c := decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(44100, 3000, 880, 0.5)))

	bank, err := b.CreateBank()
	if err != nil {
		t.Fatalf("CreateBank failed: %v", err)
	}
	defer b.DestroyBank(bank)

	b.Insert(bank, a)
	b.Insert(bank, c)
	out, err := b.Serialize(bank)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if len(out) == 0 || !bytes.HasPrefix(out, []byte("FORM")) {
		t.Errorf("expected FORM magic, got %q", out[:min(4, len(out))])
	}
	if !bytes.Equal(out[8:12], []byte("AIFF")) {
		t.Errorf("expected AIFF form type, got %q", out[8:12])
	}
}

func TestSerializeEmptyBank(t *testing.T) {
	b, m := newBridge(t)
	bank, err := b.CreateBank()
	if err != nil {
		t.Fatalf("CreateBank failed: %v", err)
	}

	out, err := b.Serialize(bank)
	if !errors.Is(err, ErrSerialize) {
		t.Fatalf("expected ErrSerialize, got %v", err)
	}
	if !errors.Is(err, op1.ErrNoSamples) {
		t.Errorf("expected ErrNoSamples cause, got %v", err)
	}
	if out != nil {
		t.Errorf("expected no output, got %d bytes", len(out))
	}

	b.DestroyBank(bank)
	assertNoLeaks(t, m)
}

func TestInsertAcrossBanksFails(t *testing.T) {
	b, _ := newBridge(t)
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Silence(500)))

	first, _ := b.CreateBank()
	if err := b.Insert(first, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := b.Serialize(first); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	second, _ := b.CreateBank()
	if err := b.Insert(second, s); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState for reused handle, got %v", err)
	}
	if second.Len() != 0 {
		t.Errorf("second bank holds %d samples, want 0", second.Len())
	}
	if err := b.Insert(first, s); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState for serialized bank, got %v", err)
	}
}

func TestBankStateTransitions(t *testing.T) {
	b, _ := newBridge(t)
	bank, _ := b.CreateBank()
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Silence(100)))
	b.Insert(bank, s)

	if _, err := b.Serialize(bank); err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if _, err := b.Serialize(bank); !errors.Is(err, ErrState) {
		t.Errorf("second Serialize: expected ErrState, got %v", err)
	}
	if err := b.SetFX(bank, "delay"); !errors.Is(err, ErrState) {
		t.Errorf("SetFX after Serialize: expected ErrState, got %v", err)
	}

	b.DestroyBank(bank)
	b.DestroyBank(bank)
	if _, err := b.Serialize(bank); !errors.Is(err, ErrState) {
		t.Errorf("Serialize after destroy: expected ErrState, got %v", err)
	}
	if b.LiveBanks() != 0 {
		t.Errorf("expected no live banks, got %d", b.LiveBanks())
	}

	if _, err := b.Serialize(nil); !errors.Is(err, ErrState) {
		t.Errorf("nil bank: expected ErrState, got %v", err)
	}
}

func TestBankFromOtherBridge(t *testing.T) {
	b1, _ := newBridge(t)
	b2, _ := newBridge(t)
	bank, _ := b1.CreateBank()

	if _, err := b2.Serialize(bank); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState for foreign bank, got %v", err)
	}
}

func TestReleasedHandle(t *testing.T) {
	b, m := newBridge(t)
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Silence(100)))

	if err := b.Release(s); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := b.Release(s); !errors.Is(err, ErrState) {
		t.Errorf("second Release: expected ErrState, got %v", err)
	}
	if _, err := b.SampleRate(s); !errors.Is(err, ErrState) {
		t.Errorf("SampleRate after Release: expected ErrState, got %v", err)
	}
	if _, err := b.SampleData(s); !errors.Is(err, ErrState) {
		t.Errorf("SampleData after Release: expected ErrState, got %v", err)
	}
	if _, err := b.SampleData(Sample{}); !errors.Is(err, ErrState) {
		t.Errorf("zero handle: expected ErrState, got %v", err)
	}
	assertNoLeaks(t, m)
}

func TestReleaseAfterInsertKeepsBank(t *testing.T) {
	b, _ := newBridge(t)
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(44100, 1000, 440, 0.5)))
	bank, _ := b.CreateBank()
	defer b.DestroyBank(bank)

	if err := b.Insert(bank, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := b.Release(s); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	out, err := b.Serialize(bank)
	if err != nil {
		t.Fatalf("Serialize after Release failed: %v", err)
	}
	drum, err := op1.ReadDrum(out)
	if err != nil {
		t.Fatalf("ReadDrum failed: %v", err)
	}
	if got := len(drum.Slot(0)); got != 1000 {
		t.Errorf("slot 0 holds %d frames, want 1000", got)
	}
}

func TestNormalizeAfterInsertFails(t *testing.T) {
	b, _ := newBridge(t)
	s := decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(44100, 1000, 440, 0.25)))
	if err := b.Normalize(s); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	data, _ := b.SampleData(s)
	peak := float32(0)
	for _, v := range data {
		if v > peak {
			peak = v
		}
	}
	if peak < 0.99 {
		t.Errorf("peak after Normalize = %f", peak)
	}

	bank, _ := b.CreateBank()
	b.Insert(bank, s)
	if err := b.Normalize(s); !errors.Is(err, ErrState) {
		t.Errorf("expected ErrState, got %v", err)
	}
}

func TestConfigBlockLength(t *testing.T) {
	b, _ := newBridge(t)
	bank, _ := b.CreateBank()

	if err := b.SetPitches(bank, []int{1, 2, 3}); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for short block, got %v", err)
	}
	if err := b.SetFXParams(bank, make([]int, 8)); err != nil {
		t.Errorf("SetFXParams failed: %v", err)
	}
	if err := b.SetFX(bank, "laser"); !errors.Is(err, ErrConfig) {
		t.Errorf("expected ErrConfig for unknown fx, got %v", err)
	}
	if err := b.SetLFO(bank, "tremolo"); err != nil {
		t.Errorf("SetLFO failed: %v", err)
	}
}

func TestConcurrentDecode(t *testing.T) {
	b, m := newBridge(t)
	file := testaudio.WAV(t, 44100, testaudio.Sine(44100, 2000, 440, 0.5))

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := b.Decode(file)
			if err != nil {
				errs <- err
				return
			}
			if _, err := b.SampleData(s); err != nil {
				errs <- err
			}
			if err := b.Release(s); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent use failed: %v", err)
	}
	assertNoLeaks(t, m)
}

// faultyModule fails selected entry points of a real module
type faultyModule struct {
	*engine.Module
	initStatus   int32
	initZero     bool
	addStatus    int32
	writeStatus  int32
	destroyCalls int
}

func (f *faultyModule) DrumInit(out uint32) int32 {
	if f.initStatus != 0 {
		return f.initStatus
	}
	if f.initZero {
		return engine.StatusOK
	}
	return f.Module.DrumInit(out)
}

func (f *faultyModule) DrumAddSample(ctx, sample uint32) int32 {
	if f.addStatus != 0 {
		return f.addStatus
	}
	return f.Module.DrumAddSample(ctx, sample)
}

func (f *faultyModule) DrumWriteBuffer(ctx, outData, outLength uint32) int32 {
	if f.writeStatus != 0 {
		return f.writeStatus
	}
	return f.Module.DrumWriteBuffer(ctx, outData, outLength)
}

func (f *faultyModule) DrumDestroy(ctx uint32) int32 {
	f.destroyCalls++
	return f.Module.DrumDestroy(ctx)
}

func TestCreateBankFailures(t *testing.T) {
	tests := []struct {
		name string
		mod  *faultyModule
	}{
		{"error status", &faultyModule{Module: engine.New(), initStatus: engine.StatusError}},
		{"null context", &faultyModule{Module: engine.New(), initZero: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.mod)
			bank, err := b.CreateBank()
			if !errors.Is(err, ErrInit) {
				t.Fatalf("expected ErrInit, got %v", err)
			}
			if bank != nil {
				t.Error("expected no bank")
			}
			assertNoLeaks(t, tt.mod.Module)
		})
	}
}

func TestExportInsertFailureCleansUp(t *testing.T) {
	mod := &faultyModule{Module: engine.New(), addStatus: engine.StatusError}
	b := New(mod)
	files := []File{{Name: "kick.wav", Data: testaudio.WAV(t, 44100, testaudio.Silence(100))}}

	out, err := b.Export(files, KitOptions{})
	var perr *PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != StageInsert || perr.Name != "kick.wav" || perr.Index != 0 {
		t.Errorf("unexpected pipeline error: %+v", perr)
	}
	if !errors.Is(err, ErrInsert) {
		t.Errorf("expected ErrInsert, got %v", err)
	}
	if out != nil {
		t.Error("expected no output on failure")
	}
	if mod.destroyCalls != 1 {
		t.Errorf("expected bank to be destroyed once, got %d", mod.destroyCalls)
	}
	assertNoLeaks(t, mod.Module)
}

func TestExportSerializeFailure(t *testing.T) {
	mod := &faultyModule{Module: engine.New(), writeStatus: engine.StatusError}
	b := New(mod)
	files := []File{{Name: "a.wav", Data: testaudio.WAV(t, 44100, testaudio.Silence(100))}}

	_, err := b.Export(files, KitOptions{})
	if !errors.Is(err, ErrSerialize) {
		t.Fatalf("expected ErrSerialize, got %v", err)
	}
	var perr *PipelineError
	if errors.As(err, &perr) && perr.Stage != StageSerialize {
		t.Errorf("stage = %q, want %q", perr.Stage, StageSerialize)
	}
	assertNoLeaks(t, mod.Module)
}

func TestBankAccessorsConcurrentWithInsert(t *testing.T) {
	b, _ := newBridge(t)
	bank, err := b.CreateBank()
	if err != nil {
		t.Fatalf("CreateBank failed: %v", err)
	}
	defer b.DestroyBank(bank)

	const n = 4
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = decode(t, b, testaudio.WAV(t, 44100, testaudio.Sine(4410, 1000, 220, 0.3)))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, s := range samples {
			if err := b.Insert(bank, s); err != nil {
				t.Errorf("Insert failed: %v", err)
			}
		}
	}()
	for i := 0; i < 100; i++ {
		if bank.State() != BankOpen {
			t.Fatalf("state = %v while inserting, want open", bank.State())
		}
		_ = bank.Len()
	}
	<-done

	if bank.Len() != n {
		t.Errorf("bank holds %d samples, want %d", bank.Len(), n)
	}
	for _, s := range samples {
		b.Release(s)
	}
}

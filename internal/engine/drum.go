// ABOUTME: Drum context entry points of the native module
// ABOUTME: Accumulates samples and kit parameters and renders them to an OP-1 AIFF
package engine

import (
	"github.com/op1kit/op1drum/pkg/op1"
)

// DrumInit creates a drum context and writes its handle to outCtx
func (m *Module) DrumInit(outCtx uint32) int32 {
	if outCtx == 0 {
		return StatusArgumentError
	}
	ctx := m.mem.Malloc(drumHeaderSize)
	if ctx == 0 {
		logf("out of memory for drum context")
		return StatusError
	}
	if err := m.mem.PutUint32(outCtx, ctx); err != nil {
		m.mem.Free(ctx)
		return StatusArgumentError
	}
	m.drums[ctx] = &drum{kit: op1.NewKit()}
	return StatusOK
}

// DrumAddSample copies sample into the context. The sample handle stays
// valid and must still be destroyed by the caller.
func (m *Module) DrumAddSample(ctx, sample uint32) int32 {
	d, ok := m.drums[ctx]
	if !ok || !m.validSample(sample) {
		return StatusArgumentError
	}
	if len(d.samples) >= op1.Slots {
		logf("drum(%#x): %v", ctx, op1.ErrTooManySamples)
		return StatusError
	}
	s, err := m.loadSample(sample)
	if err != nil {
		logf("drum(%#x): %v", ctx, err)
		return StatusError
	}
	d.samples = append(d.samples, s)
	m.mem.PutUint32(ctx, uint32(len(d.samples)))
	return StatusOK
}

// DrumWriteBuffer renders the context. The rendered file is allocated in
// module memory; its address goes to outData and its size to outLength.
// The caller frees the buffer.
func (m *Module) DrumWriteBuffer(ctx, outData, outLength uint32) int32 {
	d, ok := m.drums[ctx]
	if !ok || outData == 0 || outLength == 0 {
		return StatusArgumentError
	}

	out, err := op1.Render(d.kit, d.samples)
	if err != nil {
		logf("drum(%#x): render failed: %v", ctx, err)
		return StatusError
	}

	ptr := m.mem.Malloc(uint32(len(out)))
	if ptr == 0 {
		logf("drum(%#x): out of memory for %d byte output", ctx, len(out))
		return StatusError
	}
	m.mem.Write(ptr, out)
	if m.mem.PutUint32(outData, ptr) != nil || m.mem.PutUint32(outLength, uint32(len(out))) != nil {
		m.mem.Free(ptr)
		return StatusArgumentError
	}
	logf("drum(%#x): wrote %d bytes for %d samples", ctx, len(out), len(d.samples))
	return StatusOK
}

// DrumDestroy releases the context and its sample copies
func (m *Module) DrumDestroy(ctx uint32) int32 {
	if _, ok := m.drums[ctx]; !ok {
		return StatusArgumentError
	}
	delete(m.drums, ctx)
	m.mem.Free(ctx)
	return StatusOK
}

// DrumSetFX selects the effect named by the C string at name
func (m *Module) DrumSetFX(ctx, name uint32) int32 {
	d, ok := m.drums[ctx]
	if !ok {
		return StatusArgumentError
	}
	fx, err := m.mem.CString(name)
	if err != nil {
		return StatusArgumentError
	}
	if err := d.kit.SetFX(fx); err != nil {
		logf("drum(%#x): %v", ctx, err)
		return StatusError
	}
	return StatusOK
}

// DrumSetLFO selects the LFO named by the C string at name
func (m *Module) DrumSetLFO(ctx, name uint32) int32 {
	d, ok := m.drums[ctx]
	if !ok {
		return StatusArgumentError
	}
	lfo, err := m.mem.CString(name)
	if err != nil {
		return StatusArgumentError
	}
	if err := d.kit.SetLFO(lfo); err != nil {
		logf("drum(%#x): %v", ctx, err)
		return StatusError
	}
	return StatusOK
}

func (m *Module) DrumSetFXActive(ctx uint32, active int32) int32 {
	d, ok := m.drums[ctx]
	if !ok {
		return StatusArgumentError
	}
	d.kit.FXActive = active != 0
	return StatusOK
}

func (m *Module) DrumSetLFOActive(ctx uint32, active int32) int32 {
	d, ok := m.drums[ctx]
	if !ok {
		return StatusArgumentError
	}
	d.kit.LFOActive = active != 0
	return StatusOK
}

// DrumSetConformRate toggles resampling of mismatched sample rates
func (m *Module) DrumSetConformRate(ctx uint32, on int32) int32 {
	d, ok := m.drums[ctx]
	if !ok {
		return StatusArgumentError
	}
	d.kit.ConformRate = on != 0
	return StatusOK
}

// Eight-value parameter blocks

func (m *Module) DrumSetFXParams(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.FXParams[:] })
}

func (m *Module) DrumSetLFOParams(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.LFOParams[:] })
}

func (m *Module) DrumSetEnvelope(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.Envelope[:] })
}

// Per-slot parameters, 24 values each

func (m *Module) DrumSetPlaymode(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.Playmodes[:] })
}

func (m *Module) DrumSetPlaybackDirection(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.Directions[:] })
}

func (m *Module) DrumSetPitches(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.Pitches[:] })
}

func (m *Module) DrumSetVolumes(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.Volumes[:] })
}

func (m *Module) DrumSetStartTimes(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.StartTimes[:] })
}

func (m *Module) DrumSetEndTimes(ctx, params uint32) int32 {
	return m.setBlock(ctx, params, func(k *op1.Kit) []int { return k.EndTimes[:] })
}

// setBlock reads len(field) int32 values at params into the selected kit field
func (m *Module) setBlock(ctx, params uint32, field func(*op1.Kit) []int) int32 {
	d, ok := m.drums[ctx]
	if !ok {
		return StatusArgumentError
	}
	dst := field(d.kit)
	values, err := m.mem.Int32s(params, len(dst))
	if err != nil {
		logf("drum(%#x): %v", ctx, err)
		return StatusArgumentError
	}
	for i, v := range values {
		dst[i] = int(v)
	}
	return StatusOK
}

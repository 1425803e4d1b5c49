// ABOUTME: Buffer bridge between Go buffers and the native module's memory
// ABOUTME: Serializes module access and scopes every scratch allocation
package bridge

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/op1kit/op1drum/internal/engine"
)

// Debug enables verbose bridge logging
var Debug bool

// Module is the flat-memory ABI of the native drum module
type Module interface {
	Malloc(size uint32) uint32
	Free(ptr uint32)
	Read(ptr, n uint32) ([]byte, error)
	Write(ptr uint32, b []byte) error

	SampleLoadBuffer(buf, length, outSample uint32) int32
	SampleGetRate(sample, outRate uint32) int32
	SampleGetLength(sample, outFrames uint32) int32
	SampleGetData(sample, outData, outCount uint32) int32
	SampleNormalize(sample uint32) int32
	SampleDestroy(sample uint32) int32

	DrumInit(outCtx uint32) int32
	DrumAddSample(ctx, sample uint32) int32
	DrumWriteBuffer(ctx, outData, outLength uint32) int32
	DrumDestroy(ctx uint32) int32

	DrumSetFX(ctx, name uint32) int32
	DrumSetFXActive(ctx uint32, active int32) int32
	DrumSetFXParams(ctx, params uint32) int32
	DrumSetLFO(ctx, name uint32) int32
	DrumSetLFOActive(ctx uint32, active int32) int32
	DrumSetLFOParams(ctx, params uint32) int32
	DrumSetEnvelope(ctx, params uint32) int32
	DrumSetConformRate(ctx uint32, on int32) int32
	DrumSetPlaymode(ctx, params uint32) int32
	DrumSetPlaybackDirection(ctx, params uint32) int32
	DrumSetPitches(ctx, params uint32) int32
	DrumSetVolumes(ctx, params uint32) int32
	DrumSetStartTimes(ctx, params uint32) int32
	DrumSetEndTimes(ctx, params uint32) int32
}

// Bridge marshals buffers into and out of a Module. All methods are safe
// for concurrent use; the module itself is only ever entered by one
// goroutine at a time.
type Bridge struct {
	mu      sync.Mutex
	mod     Module
	serial  uint64
	samples map[uint64]*sampleEntry
	banks   map[uint64]*Bank

	// exports run one at a time
	exportMu sync.Mutex
}

type sampleEntry struct {
	ptr      uint32
	inserted *Bank
}

// New creates a bridge over mod
func New(mod Module) *Bridge {
	return &Bridge{
		mod:     mod,
		samples: make(map[uint64]*sampleEntry),
		banks:   make(map[uint64]*Bank),
	}
}

// NewDefault creates a bridge over a fresh native module
func NewDefault() *Bridge {
	return New(engine.New())
}

// LiveSamples returns the number of decoded samples not yet released
func (b *Bridge) LiveSamples() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.samples)
}

// LiveBanks returns the number of banks not yet destroyed
func (b *Bridge) LiveBanks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.banks)
}

func (b *Bridge) nextSerial() uint64 {
	b.serial++
	return b.serial
}

// scratch tracks temporary module allocations made during one call
type scratch struct {
	mod  Module
	ptrs []uint32
}

func (b *Bridge) scratch() *scratch {
	return &scratch{mod: b.mod}
}

func (s *scratch) alloc(size uint32) (uint32, error) {
	ptr := s.mod.Malloc(size)
	if ptr == 0 {
		return 0, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
	}
	s.ptrs = append(s.ptrs, ptr)
	return ptr, nil
}

// copyIn allocates len(data) bytes and copies data into them
func (s *scratch) copyIn(data []byte) (uint32, error) {
	ptr, err := s.alloc(uint32(len(data)))
	if err != nil {
		return 0, err
	}
	if err := s.mod.Write(ptr, data); err != nil {
		return 0, err
	}
	return ptr, nil
}

// cString copies str into module memory with a NUL terminator
func (s *scratch) cString(str string) (uint32, error) {
	return s.copyIn(append([]byte(str), 0))
}

// int32s copies values into module memory as little-endian int32
func (s *scratch) int32s(values []int) (uint32, error) {
	b := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[i*4:], uint32(int32(v)))
	}
	return s.copyIn(b)
}

func (s *scratch) readUint32(ptr uint32) (uint32, error) {
	b, err := s.mod.Read(ptr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *scratch) release() {
	for _, ptr := range s.ptrs {
		s.mod.Free(ptr)
	}
	s.ptrs = nil
}

func logf(format string, args ...interface{}) {
	if Debug {
		log.Printf("bridge: "+format, args...)
	}
}

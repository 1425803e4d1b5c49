// ABOUTME: Native drum module exposing a flat-memory, status-code ABI
// ABOUTME: Owns decoded samples and drum contexts addressed by pointers into its memory
package engine

import (
	"log"

	"github.com/op1kit/op1drum/pkg/audio"
	"github.com/op1kit/op1drum/pkg/op1"
)

// Status codes returned by every entry point
const (
	StatusOK            int32 = 0
	StatusError         int32 = -1
	StatusArgumentError int32 = -2
)

// Sample header layout in module memory
const (
	sampleHeaderSize = 16
	sampleRateOff    = 0
	sampleFramesOff  = 4
	sampleDataOff    = 8
	sampleChansOff   = 12
)

// drum context header; the context itself lives on the Go side
const drumHeaderSize = 8

// Debug enables verbose module logging
var Debug bool

type drum struct {
	kit     *op1.Kit
	samples []*audio.Sample
}

type sampleInfo struct {
	codec string
}

// Module is the native decoder and drum encoder. It is not safe for
// concurrent use; callers serialize access.
type Module struct {
	mem     *Memory
	samples map[uint32]sampleInfo
	drums   map[uint32]*drum
}

// New creates a module with the default memory limit
func New() *Module {
	return NewWithLimit(DefaultMemoryLimit)
}

// NewWithLimit creates a module whose memory is capped at limit bytes
func NewWithLimit(limit uint32) *Module {
	return &Module{
		mem:     NewMemory(limit),
		samples: make(map[uint32]sampleInfo),
		drums:   make(map[uint32]*drum),
	}
}

// Memory exposes the module's linear memory
func (m *Module) Memory() *Memory {
	return m.mem
}

// Malloc allocates size bytes in module memory; 0 means out of memory
func (m *Module) Malloc(size uint32) uint32 {
	return m.mem.Malloc(size)
}

// Free releases memory obtained from Malloc or returned through an
// out-parameter
func (m *Module) Free(ptr uint32) {
	if ptr == 0 {
		return
	}
	if !m.mem.Free(ptr) {
		logf("free of unknown pointer %#x", ptr)
	}
}

// LiveSamples returns the number of samples not yet destroyed
func (m *Module) LiveSamples() int {
	return len(m.samples)
}

// LiveDrums returns the number of drum contexts not yet destroyed
func (m *Module) LiveDrums() int {
	return len(m.drums)
}

func logf(format string, args ...interface{}) {
	if Debug {
		log.Printf("engine: "+format, args...)
	}
}

// Read copies n bytes of module memory at ptr
func (m *Module) Read(ptr, n uint32) ([]byte, error) {
	return m.mem.Read(ptr, n)
}

// Write copies b into module memory at ptr
func (m *Module) Write(ptr uint32, b []byte) error {
	return m.mem.Write(ptr, b)
}

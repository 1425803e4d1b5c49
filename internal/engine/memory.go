// ABOUTME: Linear memory for the native drum module
// ABOUTME: First-fit allocator over a growable byte slice, addressed by uint32 pointers
package engine

import (
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	// Addresses below this are never handed out so 0 stays the null pointer
	heapBase = 8

	// Allocation granularity
	alignment = 8

	// DefaultMemoryLimit caps the linear memory size
	DefaultMemoryLimit = 256 << 20
)

type span struct {
	off  uint32
	size uint32
}

// Memory is a flat little-endian address space with malloc/free semantics.
// Slices returned by View are invalidated by the next Malloc.
type Memory struct {
	heap  []byte
	top   uint32
	limit uint32
	free  []span
	live  map[uint32]uint32
}

// NewMemory creates an empty linear memory capped at limit bytes
func NewMemory(limit uint32) *Memory {
	return &Memory{
		heap:  make([]byte, heapBase),
		top:   heapBase,
		limit: limit,
		live:  make(map[uint32]uint32),
	}
}

// Malloc reserves size bytes and returns their address, or 0 when the
// memory limit would be exceeded
func (m *Memory) Malloc(size uint32) uint32 {
	if size == 0 {
		size = 1
	}
	if size > m.limit {
		return 0
	}
	size = (size + alignment - 1) &^ (alignment - 1)

	for i, s := range m.free {
		if s.size < size {
			continue
		}
		ptr := s.off
		if s.size == size {
			m.free = append(m.free[:i], m.free[i+1:]...)
		} else {
			m.free[i] = span{off: s.off + size, size: s.size - size}
		}
		m.live[ptr] = size
		return ptr
	}

	if uint64(m.top)+uint64(size) > uint64(m.limit) {
		return 0
	}
	ptr := m.top
	m.top += size
	if int(m.top) > len(m.heap) {
		grown := make([]byte, max(int(m.top), 2*len(m.heap)))
		copy(grown, m.heap)
		m.heap = grown
	}
	m.live[ptr] = size
	return ptr
}

// Free releases an allocation. Freeing an unknown address reports false.
func (m *Memory) Free(ptr uint32) bool {
	size, ok := m.live[ptr]
	if !ok {
		return false
	}
	delete(m.live, ptr)
	clear(m.heap[ptr : ptr+size])

	i := sort.Search(len(m.free), func(i int) bool { return m.free[i].off > ptr })
	m.free = append(m.free, span{})
	copy(m.free[i+1:], m.free[i:])
	m.free[i] = span{off: ptr, size: size}

	// Coalesce with the following and preceding spans
	if i+1 < len(m.free) && m.free[i].off+m.free[i].size == m.free[i+1].off {
		m.free[i].size += m.free[i+1].size
		m.free = append(m.free[:i+1], m.free[i+2:]...)
	}
	if i > 0 && m.free[i-1].off+m.free[i-1].size == m.free[i].off {
		m.free[i-1].size += m.free[i].size
		m.free = append(m.free[:i], m.free[i+1:]...)
	}

	// Give the tail back to the bump pointer
	if last := m.free[len(m.free)-1]; last.off+last.size == m.top {
		m.top = last.off
		m.free = m.free[:len(m.free)-1]
	}
	return true
}

// View returns the n bytes at ptr without copying
func (m *Memory) View(ptr, n uint32) ([]byte, error) {
	if ptr == 0 {
		return nil, fmt.Errorf("null pointer")
	}
	end := uint64(ptr) + uint64(n)
	if end > uint64(m.top) {
		return nil, fmt.Errorf("access %#x+%d out of bounds", ptr, n)
	}
	return m.heap[ptr:end], nil
}

// Read copies n bytes at ptr into a new slice
func (m *Memory) Read(ptr, n uint32) ([]byte, error) {
	view, err := m.View(ptr, n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, view)
	return out, nil
}

// Write copies b to ptr
func (m *Memory) Write(ptr uint32, b []byte) error {
	view, err := m.View(ptr, uint32(len(b)))
	if err != nil {
		return err
	}
	copy(view, b)
	return nil
}

// Uint32 reads a little-endian uint32 at ptr
func (m *Memory) Uint32(ptr uint32) (uint32, error) {
	view, err := m.View(ptr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(view), nil
}

// PutUint32 writes a little-endian uint32 at ptr
func (m *Memory) PutUint32(ptr, v uint32) error {
	view, err := m.View(ptr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(view, v)
	return nil
}

// Int32s reads n little-endian int32 values at ptr
func (m *Memory) Int32s(ptr uint32, n int) ([]int32, error) {
	view, err := m.View(ptr, uint32(n*4))
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(view[i*4:]))
	}
	return out, nil
}

// CString reads a NUL-terminated string at ptr
func (m *Memory) CString(ptr uint32) (string, error) {
	if ptr == 0 || ptr >= m.top {
		return "", fmt.Errorf("invalid string pointer %#x", ptr)
	}
	for i := ptr; i < m.top; i++ {
		if m.heap[i] == 0 {
			return string(m.heap[ptr:i]), nil
		}
	}
	return "", fmt.Errorf("unterminated string at %#x", ptr)
}

// Allocated returns the number of live allocations
func (m *Memory) Allocated() int {
	return len(m.live)
}

// InUse returns the number of live bytes
func (m *Memory) InUse() uint32 {
	var n uint32
	for _, size := range m.live {
		n += size
	}
	return n
}

// Size returns the current high-water mark of the address space
func (m *Memory) Size() uint32 {
	return m.top
}

// ABOUTME: Native drum module package
// ABOUTME: Decoder and OP-1 drum encoder behind a flat-memory ABI
// Package engine is the native side of the drum builder. Callers never
// hold Go values from it: they allocate in its linear memory, copy bytes
// in, call an entry point that returns an int32 status, and read results
// back through out-parameter slots.
//
// Example:
//
//	m := engine.New()
//	buf := m.Malloc(uint32(len(file)))
//	m.Memory().Write(buf, file)
//	out := m.Malloc(4)
//	status := m.SampleLoadBuffer(buf, uint32(len(file)), out)
package engine

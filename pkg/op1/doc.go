// ABOUTME: OP-1 drum kit format package
// ABOUTME: Renders and parses OP-1 drum AIFF files
// Package op1 models OP-1 drum kits: 24 slots of mono 16-bit audio stored
// back to back in one AIFF file, with the slot layout and synth parameters
// kept as JSON in an APPL chunk signed "op-1".
//
// Render builds a kit from decoded samples; ReadDrum parses one back.
package op1

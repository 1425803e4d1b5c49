// ABOUTME: OP-1 drum kit reader
// ABOUTME: Parses an AIFF drum kit back into its descriptor and PCM data
package op1

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotAIFF        = errors.New("not an AIFF file")
	ErrNoDescriptor   = errors.New("no op-1 APPL chunk")
	ErrUnsupportedPCM = errors.New("only mono 16-bit kits are supported")
)

// Drum is a parsed OP-1 drum kit
type Drum struct {
	Metadata   Metadata
	Descriptor []byte // raw JSON as stored in the file
	SampleRate int
	Data       []int16
}

// Slot returns the PCM of slot i, or nil when the slot is out of range
func (d *Drum) Slot(i int) []int16 {
	start, end := d.Metadata.SlotFrames(i)
	if start < 0 || end > len(d.Data) || start >= end {
		return nil
	}
	return d.Data[start:end]
}

// UsedSlots returns the number of distinct leading slots
func (d *Drum) UsedSlots() int {
	n := 0
	for i := 0; i < len(d.Metadata.Start) && i < len(d.Metadata.End); i++ {
		if i > 0 && d.Metadata.Start[i] == d.Metadata.Start[i-1] && d.Metadata.End[i] == d.Metadata.End[i-1] {
			break
		}
		n++
	}
	return n
}

// ReadDrum parses an OP-1 drum AIFF
func ReadDrum(data []byte) (*Drum, error) {
	if len(data) < 12 || !bytes.Equal(data[0:4], []byte("FORM")) || !bytes.Equal(data[8:12], []byte("AIFF")) {
		return nil, ErrNotAIFF
	}

	drum := &Drum{}
	var haveDescriptor, haveComm bool
	var frames int

	pos := 12
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.BigEndian.Uint32(data[pos+4:]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("chunk %q overruns file", id)
		}
		chunk := data[body : body+size]

		switch id {
		case "COMM":
			if size < 18 {
				return nil, fmt.Errorf("short COMM chunk")
			}
			channels := binary.BigEndian.Uint16(chunk[0:])
			frames = int(binary.BigEndian.Uint32(chunk[2:]))
			bits := binary.BigEndian.Uint16(chunk[6:])
			if channels != 1 || bits != 16 {
				return nil, fmt.Errorf("%w: %d channels, %d bits", ErrUnsupportedPCM, channels, bits)
			}
			drum.SampleRate = decodeExtended(chunk[8:18])
			haveComm = true

		case "APPL":
			if size >= 4 && string(chunk[0:4]) == AppSignature {
				drum.Descriptor = bytes.TrimRight(chunk[4:], "\x00 ")
				if err := json.Unmarshal(drum.Descriptor, &drum.Metadata); err != nil {
					return nil, fmt.Errorf("invalid descriptor: %w", err)
				}
				haveDescriptor = true
			}

		case "SSND":
			if size < 8 {
				return nil, fmt.Errorf("short SSND chunk")
			}
			offset := int(binary.BigEndian.Uint32(chunk[0:]))
			if 8+offset > len(chunk) {
				return nil, fmt.Errorf("SSND offset %d overruns chunk", offset)
			}
			pcm := chunk[8+offset:]
			drum.Data = make([]int16, len(pcm)/2)
			for i := range drum.Data {
				drum.Data[i] = int16(binary.BigEndian.Uint16(pcm[i*2:]))
			}
		}

		pos = body + size + size%2
	}

	if !haveComm {
		return nil, fmt.Errorf("missing COMM chunk")
	}
	if !haveDescriptor {
		return nil, ErrNoDescriptor
	}
	if frames < len(drum.Data) {
		drum.Data = drum.Data[:frames]
	}
	return drum, nil
}

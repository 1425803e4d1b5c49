// ABOUTME: OP-1 drum descriptor stored in the AIFF APPL chunk
// ABOUTME: JSON layout mirrors the files the OP-1 writes itself
package op1

// Metadata is the JSON descriptor the OP-1 reads from a drum kit
type Metadata struct {
	DrumVersion int     `json:"drum_version"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	Octave      int     `json:"octave"`
	Pitch       []int   `json:"pitch"`
	Start       []int64 `json:"start"`
	End         []int64 `json:"end"`
	Playmode    []int   `json:"playmode"`
	Reverse     []int   `json:"reverse"`
	Volume      []int   `json:"volume"`
	DynaEnv     []int   `json:"dyna_env"`
	FXActive    bool    `json:"fx_active"`
	FXType      string  `json:"fx_type"`
	FXParams    []int   `json:"fx_params"`
	LFOActive   bool    `json:"lfo_active"`
	LFOType     string  `json:"lfo_type"`
	LFOParams   []int   `json:"lfo_params"`
}

// SlotFrames returns the frame range [start, end) of slot i
func (m *Metadata) SlotFrames(i int) (start, end int) {
	if i < 0 || i >= len(m.Start) || i >= len(m.End) {
		return 0, 0
	}
	return TimeToFrame(m.Start[i]), TimeToFrame(m.End[i])
}

func newMetadata(k *Kit, start, end []int64) Metadata {
	return Metadata{
		DrumVersion: 1,
		Type:        "drum",
		Name:        "user",
		Octave:      0,
		Pitch:       k.Pitches[:],
		Start:       start,
		End:         end,
		Playmode:    k.Playmodes[:],
		Reverse:     k.Directions[:],
		Volume:      k.Volumes[:],
		DynaEnv:     k.Envelope[:],
		FXActive:    k.FXActive,
		FXType:      k.FXType,
		FXParams:    k.FXParams[:],
		LFOActive:   k.LFOActive,
		LFOType:     k.LFOType,
		LFOParams:   k.LFOParams[:],
	}
}

package song

type SampleIndex uint16
type InstrumentIndex uint16

// EnvelopeNode is a point of an envelope.
// Values are 0..64; panning and pitch envelopes are centered at 32.
type EnvelopeNode struct {
	Tick  uint16
	Value uint8
}

type EnvelopeFlags uint8

const (
	EnvelopeEnabled EnvelopeFlags = 1 << iota
	EnvelopeLoop
	EnvelopeSustain
	EnvelopeCarry
	// EnvelopeFilter turns a pitch envelope into a filter envelope.
	EnvelopeFilter
)

func (f EnvelopeFlags) Has(v EnvelopeFlags) bool { return f&v != 0 }

// NoReleaseNode disables the release node of an envelope.
const NoReleaseNode = 0xFF

type Envelope struct {
	Nodes []EnvelopeNode
	Flags EnvelopeFlags

	// Node indices.
	LoopStart    uint8
	LoopEnd      uint8
	SustainStart uint8
	SustainEnd   uint8
	ReleaseNode  uint8
}

// Active reports whether the envelope is enabled and has nodes.
func (e *Envelope) Active() bool {
	return e.Flags.Has(EnvelopeEnabled) && len(e.Nodes) > 0
}

// NodeTick returns the tick of a node, clamped to the node list.
func (e *Envelope) NodeTick(i uint8) int {
	if len(e.Nodes) == 0 {
		return 0
	}
	if int(i) >= len(e.Nodes) {
		i = uint8(len(e.Nodes) - 1)
	}
	return int(e.Nodes[i].Tick)
}

// LastTick returns the position of the last node.
func (e *Envelope) LastTick() int {
	if len(e.Nodes) == 0 {
		return 0
	}
	return int(e.Nodes[len(e.Nodes)-1].Tick)
}

// ValueAt interpolates the envelope at the given tick.
// The result is in 0..64.
func (e *Envelope) ValueAt(tick int) float64 {
	n := len(e.Nodes)
	if n == 0 {
		return 64
	}
	if tick <= int(e.Nodes[0].Tick) {
		return float64(e.Nodes[0].Value)
	}
	for i := 1; i < n; i++ {
		b := e.Nodes[i]
		if tick > int(b.Tick) {
			continue
		}
		a := e.Nodes[i-1]
		if b.Tick <= a.Tick {
			return float64(b.Value)
		}
		p := float64(tick-int(a.Tick)) / float64(b.Tick-a.Tick)
		return float64(a.Value)*(1-p) + float64(b.Value)*p
	}
	return float64(e.Nodes[n-1].Value)
}

// Instrument maps notes to samples and adds envelopes on top of them.
type Instrument struct {
	Name     string
	Filename string

	// Keyboard maps note-1 to a sample; NoteMap maps note-1 to the note
	// that is actually played (IT note transposition).
	Keyboard [NoteCount]SampleIndex
	NoteMap  [NoteCount]uint8

	VolumeEnvelope  Envelope
	PanningEnvelope Envelope
	PitchEnvelope   Envelope

	// FadeOut is subtracted from a 65536-based fade volume every tick
	// after the note was released.
	FadeOut uint32

	GlobalVolume uint8 // 0..64
	Pan          uint16
	HasPan       bool

	// Filter defaults, -1 when unset (0..127 otherwise).
	FilterCutoff    int
	FilterResonance int

	// MIDI export hints.
	MIDIProgram uint8
}

// NewInstrument returns an instrument mapping every note to itself
// and to no sample.
func NewInstrument() *Instrument {
	ins := &Instrument{
		GlobalVolume:    64,
		Pan:             128,
		FilterCutoff:    -1,
		FilterResonance: -1,
	}
	for i := range ins.NoteMap {
		ins.NoteMap[i] = uint8(i) + NoteMin
	}
	ins.VolumeEnvelope.ReleaseNode = NoReleaseNode
	ins.PanningEnvelope.ReleaseNode = NoReleaseNode
	ins.PitchEnvelope.ReleaseNode = NoReleaseNode
	return ins
}

// SetKeyboard assigns one sample to all notes.
func (ins *Instrument) SetKeyboard(smp SampleIndex) {
	for i := range ins.Keyboard {
		ins.Keyboard[i] = smp
	}
}

// SampleFor returns the sample and the note played for a pattern note.
func (ins *Instrument) SampleFor(note uint8) (SampleIndex, uint8) {
	if !IsNote(note) {
		return 0, note
	}
	return ins.Keyboard[note-NoteMin], ins.NoteMap[note-NoteMin]
}

// Clone returns a deep copy of the instrument.
func (ins *Instrument) Clone() *Instrument {
	c := *ins
	c.VolumeEnvelope.Nodes = append([]EnvelopeNode(nil), ins.VolumeEnvelope.Nodes...)
	c.PanningEnvelope.Nodes = append([]EnvelopeNode(nil), ins.PanningEnvelope.Nodes...)
	c.PitchEnvelope.Nodes = append([]EnvelopeNode(nil), ins.PitchEnvelope.Nodes...)
	return &c
}

// References reports whether any note maps to the sample.
func (ins *Instrument) References(smp SampleIndex) bool {
	for _, k := range ins.Keyboard {
		if k == smp {
			return true
		}
	}
	return false
}

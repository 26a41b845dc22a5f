package modplug

import (
	"github.com/ksnyder9801/modplug/song"
)

// Effect memory slots.
const (
	memVolumeSlide = iota
	memPortaUp
	memPortaDown
	memTonePorta
	memOffset
	memTremor
	memRetrig
	memArpeggio
	memChannelVolSlide
	memGlobalVolSlide
	memPanningSlide
	memTempo
	memExtended
	memXFinePortaUp
	memXFinePortaDown

	numMemorySlots
)

type streamChannel struct {
	id int

	// Note-related data.
	ins      *song.Instrument
	smp      *song.Sample
	nextSmp  *song.Sample // selected by an instrument column without a note
	swapSmp  *song.Sample // pending one-shot swap
	note     uint8
	c5       uint32
	period   float64
	keyOn    bool
	playing  bool
	cell     song.Command
	hasNote  bool
	effect   song.EffectCommand
	param    uint8
	memory   [numMemorySlots]uint8

	portaTarget float64
	portaActive bool

	volume     int // 0..64
	chanVolume int // 0..64
	pan        int // 0..256
	surround   bool
	muted      bool

	fading     bool
	fadeVolume int // 0..65536

	volumeEnvelope  envelopeRunner
	panningEnvelope envelopeRunner
	pitchEnvelope   envelopeRunner

	// Per-tick modulation offsets.
	arpeggio   int // semitones
	vibOffset  float64
	tremOffset int
	panbOffset int

	vibratoPos   uint8
	vibratoSpeed uint8
	vibratoDepth uint8
	vibratoWave  waveform
	vibratoKeep  bool

	tremoloPos   uint8
	tremoloSpeed uint8
	tremoloDepth uint8
	tremoloWave  waveform
	tremoloKeep  bool

	panbrelloPos   uint8
	panbrelloSpeed uint8
	panbrelloDepth uint8
	panbrelloWave  waveform

	tremorCount int
	tremorMute  bool
	retrigCount int

	patternLoopRow   int
	patternLoopCount int

	cutTick   int
	delayTick int

	highOffset int
	glissando  bool
	reverse    bool

	autoVibratoPos   int
	autoVibratoDepth int // 1/256 units

	cutoff    int
	resonance int

	rand uint32
	vu   float32
}

func (ch *streamChannel) Reset(settings song.ChannelSettings) {
	*ch = streamChannel{
		id:         ch.id,
		chanVolume: int(settings.Volume),
		pan:        int(settings.Pan),
		surround:   settings.Surround,
		muted:      settings.Muted,
		fadeVolume: 65536,
		cutTick:    -1,
		delayTick:  -1,
		cutoff:     127,
		rand:       uint32(ch.id)*2654435761 + 1,
	}
}

// envelopeRunner is the playback position inside an instrument envelope.
type envelopeRunner struct {
	tick int
	// disabled is set by S77/S79/S7B; cleared on new notes.
	disabled bool
	// enabled is set by S78/S7A/S7C.
	enabled bool
}

func (e *envelopeRunner) active(env *song.Envelope) bool {
	if len(env.Nodes) == 0 || e.disabled {
		return false
	}
	return e.enabled || env.Flags.Has(song.EnvelopeEnabled)
}

// value returns the envelope value at the current position.
func (e *envelopeRunner) value(env *song.Envelope) float64 {
	return env.ValueAt(e.tick)
}

// step advances the position by one tick, honouring the sustain loop
// while the key is held and the normal loop otherwise.
func (e *envelopeRunner) step(env *song.Envelope, keyOn bool) {
	if keyOn && env.Flags.Has(song.EnvelopeSustain) {
		start, end := env.NodeTick(env.SustainStart), env.NodeTick(env.SustainEnd)
		if e.tick >= end {
			e.tick = start
			return
		}
	} else if env.Flags.Has(song.EnvelopeLoop) {
		start, end := env.NodeTick(env.LoopStart), env.NodeTick(env.LoopEnd)
		if e.tick >= end {
			e.tick = start
			return
		}
	}
	if e.tick < env.LastTick() {
		e.tick++
	}
}

// finished reports whether the envelope sits on its last node
// with no loop to return to.
func (e *envelopeRunner) finished(env *song.Envelope, keyOn bool) bool {
	if keyOn && env.Flags.Has(song.EnvelopeSustain) {
		return false
	}
	if env.Flags.Has(song.EnvelopeLoop) {
		return false
	}
	return e.tick >= env.LastTick()
}

func (e *envelopeRunner) restart(env *song.Envelope) {
	e.disabled, e.enabled = false, false
	if !env.Flags.Has(song.EnvelopeCarry) {
		e.tick = 0
	}
}

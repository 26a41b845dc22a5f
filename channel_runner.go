package modplug

import (
	"math"

	"github.com/ksnyder9801/modplug/song"
)

// processNote handles the note and instrument columns of a cell.
func (s *Stream) processNote(ch *streamChannel, cell song.Command) {
	porta := cell.Effect == song.EffectTonePorta || cell.Effect == song.EffectTonePortaVol ||
		cell.VolCmd == song.VolTonePorta
	ch.hasNote = song.IsNote(cell.Note)

	if cell.Instr != 0 {
		s.setInstrument(ch, cell.Instr, cell.Note)
	}

	switch {
	case cell.Note == song.NoteKeyOff:
		s.keyOff(ch)
	case cell.Note == song.NoteCut:
		s.noteCut(ch)
	case cell.Note == song.NoteFade:
		if ch.ins != nil {
			ch.fading = true
		} else {
			s.noteCut(ch)
		}
	case ch.hasNote:
		s.noteOn(ch, cell.Note, porta)
	}
}

// setInstrument applies the instrument column. In sample mode the
// number selects a sample directly.
func (s *Stream) setInstrument(ch *streamChannel, instr, note uint8) {
	if s.song.InstrumentMode() {
		ins := s.song.Instrument(song.InstrumentIndex(instr))
		if ins == nil {
			return
		}
		ch.ins = ins
		n := note
		if !song.IsNote(n) {
			n = ch.note
		}
		idx, _ := ins.SampleFor(n)
		if smp := s.song.Sample(idx); smp != nil {
			s.applySampleDefaults(ch, smp)
		}
		if ins.HasPan {
			ch.pan = int(ins.Pan)
			ch.surround = false
		}
		if ins.FilterCutoff >= 0 {
			ch.cutoff = ins.FilterCutoff
		}
		if ins.FilterResonance >= 0 {
			ch.resonance = ins.FilterResonance
		}
		if !song.IsNote(note) && ch.playing {
			// An instrument without a note restarts the envelopes
			// of the playing note.
			ch.keyOn = true
			ch.fading = false
			ch.fadeVolume = 65536
			s.restartEnvelopes(ch)
			s.mixer.SetSustain(ch.id, true)
		}
		return
	}

	smp := s.song.Sample(song.SampleIndex(instr))
	if smp == nil {
		return
	}
	s.applySampleDefaults(ch, smp)
	ch.nextSmp = smp
	if !song.IsNote(note) && s.spec.SampleSwap && ch.smp != nil && smp != ch.smp {
		ch.swapSmp = smp
	}
}

func (s *Stream) applySampleDefaults(ch *streamChannel, smp *song.Sample) {
	ch.volume = int(smp.Volume) / 4
	if smp.Flags.Has(song.SamplePanning) {
		ch.pan = int(smp.Pan)
		ch.surround = false
	}
}

func (s *Stream) noteOn(ch *streamChannel, note uint8, porta bool) {
	played := note
	var smp *song.Sample
	if s.song.InstrumentMode() {
		if ch.ins == nil {
			return
		}
		idx, n := ch.ins.SampleFor(note)
		smp = s.song.Sample(idx)
		if song.IsNote(n) {
			played = n
		}
	} else {
		smp = ch.nextSmp
		if smp == nil {
			smp = ch.smp
		}
	}
	if smp == nil || !smp.HasData() {
		s.noteCut(ch)
		return
	}

	c5 := smp.SampleRate(s.song.Format)
	target := s.notePeriod(played, c5)
	if porta && ch.playing && s.mixer.Voice(ch.id).Active() {
		ch.portaTarget = target
		ch.portaActive = true
		return
	}

	ch.smp = smp
	ch.nextSmp = nil
	ch.swapSmp = nil
	ch.note = played
	ch.c5 = c5
	ch.period = target
	ch.portaActive = false
	ch.keyOn = true
	ch.playing = true
	ch.fading = false
	ch.fadeVolume = 65536
	ch.reverse = false
	ch.retrigCount = 0
	ch.tremorCount = 0
	ch.tremorMute = false
	ch.autoVibratoPos = 0
	ch.autoVibratoDepth = 0
	if !ch.vibratoKeep {
		ch.vibratoPos = 0
	}
	if !ch.tremoloKeep {
		ch.tremoloPos = 0
	}
	if ch.ins != nil {
		s.restartEnvelopes(ch)
	}
	s.mixer.Start(ch.id, smp, 0)
}

func (s *Stream) restartEnvelopes(ch *streamChannel) {
	ch.volumeEnvelope.restart(&ch.ins.VolumeEnvelope)
	ch.panningEnvelope.restart(&ch.ins.PanningEnvelope)
	ch.pitchEnvelope.restart(&ch.ins.PitchEnvelope)
}

func (s *Stream) notePeriod(note uint8, c5 uint32) float64 {
	if s.song.LinearSlides {
		return linearPeriod(float64(note))
	}
	return amigaPeriod(float64(note), c5)
}

// keyOff releases the note: sustain loops end and the fadeout starts.
func (s *Stream) keyOff(ch *streamChannel) {
	ch.keyOn = false
	s.mixer.SetSustain(ch.id, false)
	if ch.ins == nil {
		if ch.smp == nil || !ch.smp.Flags.Has(song.SampleSustain) {
			ch.volume = 0
		}
		return
	}
	if s.spec.XMKeyOff && !ch.volumeEnvelope.active(&ch.ins.VolumeEnvelope) {
		ch.volume = 0
	}
	ch.fading = true
}

func (s *Stream) noteCut(ch *streamChannel) {
	ch.playing = false
	ch.portaActive = false
	s.mixer.Stop(ch.id)
}

// updateChannel computes the final pitch, volume and panning of a
// channel for the current tick and hands them to the mixer.
func (s *Stream) updateChannel(ch *streamChannel) {
	if ch.swapSmp != nil && !s.mixer.Voice(ch.id).Active() {
		smp := ch.swapSmp
		ch.swapSmp = nil
		if smp.HasData() && smp.Flags.Has(song.SampleLoop) {
			ch.smp = smp
			ch.c5 = smp.SampleRate(s.song.Format)
			s.mixer.Start(ch.id, smp, smp.LoopStart)
			ch.playing = true
		}
	}
	if !s.mixer.Voice(ch.id).Active() {
		ch.playing = false
		return
	}

	volume := float64(clamp(ch.volume+ch.tremOffset, 0, 64)) / 64
	if ch.tremorMute || ch.muted {
		volume = 0
	}
	volume *= float64(ch.chanVolume) / 64
	volume *= float64(s.globalVolume) / 256
	volume *= float64(ch.smp.GlobalVolume) / 64
	pan := ch.pan + ch.panbOffset
	pitch := 0.0
	filterMod := 0

	if ins := ch.ins; ins != nil {
		volume *= float64(ins.GlobalVolume) / 64

		if env := &ins.VolumeEnvelope; ch.volumeEnvelope.active(env) {
			v := ch.volumeEnvelope.value(env)
			volume *= v / 64
			ended := v == 0 && ch.volumeEnvelope.finished(env, ch.keyOn)
			ch.volumeEnvelope.step(env, ch.keyOn)
			if ended {
				s.noteCut(ch)
				return
			}
		}
		if env := &ins.PanningEnvelope; ch.panningEnvelope.active(env) {
			v := ch.panningEnvelope.value(env) - 32
			pan += int(v * float64(128-abs(clamp(pan, 0, 256)-128)) / 32)
			ch.panningEnvelope.step(env, ch.keyOn)
		}
		if env := &ins.PitchEnvelope; ch.pitchEnvelope.active(env) {
			v := ch.pitchEnvelope.value(env) - 32
			if env.Flags.Has(song.EnvelopeFilter) {
				filterMod = int(v * 8)
			} else {
				pitch = v / 2
			}
			ch.pitchEnvelope.step(env, ch.keyOn)
		}
		if ch.fading {
			volume *= float64(ch.fadeVolume) / 65536
			ch.fadeVolume -= int(ins.FadeOut)
			if ch.fadeVolume <= 0 {
				ch.fadeVolume = 0
				s.noteCut(ch)
				return
			}
		}
	}

	s.mixer.SetFrequency(ch.id, s.frequency(ch, pitch))
	left, right := s.mixer.Pan(volume, float64(clamp(pan, 0, 256))/256)
	s.mixer.SetVolume(ch.id, left, right)
	s.mixer.SetSurround(ch.id, ch.surround)
	s.mixer.SetFilter(ch.id, ch.cutoff, ch.resonance, filterMod)
}

// frequency returns the playback rate of the channel in Hz;
// pitch is an extra offset in semitones.
func (s *Stream) frequency(ch *streamChannel, pitch float64) float64 {
	period := ch.period + ch.vibOffset + s.autoVibrato(ch)
	if ch.glissando && ch.portaActive {
		period = s.roundToSemitone(ch, period)
	}

	var hz float64
	if s.song.LinearSlides {
		hz = linearFrequency(ch.c5, period)
	} else {
		if s.spec.AmigaLimits {
			period = clamp(period, amigaPeriodMin, amigaPeriodMax)
		}
		hz = amigaFrequency(period)
	}
	if semitones := float64(ch.arpeggio) + pitch; semitones != 0 {
		hz *= math.Pow(2, semitones/12)
	}
	return hz
}

func (s *Stream) roundToSemitone(ch *streamChannel, period float64) float64 {
	if s.song.LinearSlides {
		return math.Round(period/64) * 64
	}
	if period <= 0 || ch.c5 == 0 {
		return period
	}
	note := float64(song.NoteMiddleC) + 12*math.Log2(amigaClock/(period*float64(ch.c5)))
	return amigaPeriod(math.Round(note), ch.c5)
}

// autoVibrato returns the sample vibrato as a period offset.
func (s *Stream) autoVibrato(ch *streamChannel) float64 {
	smp := ch.smp
	if !s.spec.AutoVibrato || smp == nil || smp.VibratoDepth == 0 || smp.VibratoRate == 0 {
		return 0
	}
	full := int(smp.VibratoDepth) << 8
	switch {
	case s.spec.XMVibratoSweep:
		if smp.VibratoSweep == 0 {
			ch.autoVibratoDepth = full
		} else {
			ch.autoVibratoDepth = min(ch.autoVibratoDepth+full/int(smp.VibratoSweep), full)
		}
	case smp.VibratoSweep == 0:
		return 0
	default:
		ch.autoVibratoDepth = min(ch.autoVibratoDepth+int(smp.VibratoSweep), full)
	}
	ch.autoVibratoPos += int(smp.VibratoRate)
	w := waveValue(autoVibratoWaveform(smp.VibratoType), uint8(ch.autoVibratoPos>>2), &ch.rand)
	return float64(w*ch.autoVibratoDepth) / (1 << 14)
}

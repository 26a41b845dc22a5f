package modplug

import (
	"math"

	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

func recallNibble(ch *streamChannel, slot int, v uint8) uint8 {
	if v == 0 {
		return ch.memory[slot]
	}
	ch.memory[slot] = v
	return v
}

// recall applies the effect memory: a zero parameter repeats the
// last non-zero one.
func (s *Stream) recall(ch *streamChannel, e song.EffectCommand, p uint8) uint8 {
	slot := -1
	switch e {
	case song.EffectTonePorta:
		slot = memTonePorta
	case song.EffectOffset:
		slot = memOffset
	}
	if slot < 0 && s.spec.EffectMemory {
		switch e {
		case song.EffectVolumeSlide, song.EffectTonePortaVol, song.EffectVibratoVol:
			slot = memVolumeSlide
		case song.EffectPortaUp:
			slot = memPortaUp
		case song.EffectPortaDown:
			slot = memPortaDown
		case song.EffectTremor:
			slot = memTremor
		case song.EffectRetrig:
			slot = memRetrig
		case song.EffectArpeggio:
			slot = memArpeggio
		case song.EffectChannelVolSlide:
			slot = memChannelVolSlide
		case song.EffectGlobalVolSlide:
			slot = memGlobalVolSlide
		case song.EffectPanningSlide:
			slot = memPanningSlide
		case song.EffectS3MCmdEx:
			slot = memExtended
		case song.EffectTempo:
			if s.spec.TempoSlides {
				slot = memTempo
			}
		}
		if s.spec.SharedEffectMemory {
			switch e {
			case song.EffectVolumeSlide, song.EffectTonePortaVol, song.EffectVibratoVol,
				song.EffectPortaUp, song.EffectPortaDown, song.EffectTremor,
				song.EffectRetrig, song.EffectArpeggio, song.EffectS3MCmdEx:
				slot = memVolumeSlide
			}
		}
	}
	if slot < 0 {
		return p
	}
	if p == 0 {
		return ch.memory[slot]
	}
	ch.memory[slot] = p
	return p
}

// slideDelta decodes a volume-slide style parameter: x slides up,
// y slides down. Formats with fine slides encode them as xF and Fy.
func (s *Stream) slideDelta(p uint8, firstTick bool) int {
	x, y := int(p>>4), int(p&0x0F)
	if s.spec.FineVolumeSlides {
		switch {
		case y == 0x0F && x != 0:
			if firstTick {
				return x
			}
			return 0
		case x == 0x0F && y != 0:
			if firstTick {
				return -y
			}
			return 0
		}
	}
	if firstTick && !(s.spec.RowZeroSlides && s.song.FastSlides) {
		return 0
	}
	if x != 0 {
		return x
	}
	return -y
}

func (s *Stream) applyRowEffect(ch *streamChannel, cell song.Command) {
	e := cell.Effect
	p := s.recall(ch, e, cell.Param)
	ch.effect, ch.param = e, p
	x, y := p>>4, p&0x0F

	switch e {
	case song.EffectPortaUp:
		s.portamento(ch, p, true, true)
	case song.EffectPortaDown:
		s.portamento(ch, p, false, true)

	case song.EffectXFinePorta:
		// Each direction remembers its own depth.
		switch x {
		case 1:
			s.slidePeriod(ch, float64(recallNibble(ch, memXFinePortaUp, y)), true)
		case 2:
			s.slidePeriod(ch, float64(recallNibble(ch, memXFinePortaDown, y)), false)
		}

	case song.EffectVibrato, song.EffectFineVibrato:
		if x != 0 {
			ch.vibratoSpeed = x
		}
		if y != 0 {
			ch.vibratoDepth = y
		}

	case song.EffectTremolo:
		if x != 0 {
			ch.tremoloSpeed = x
		}
		if y != 0 {
			ch.tremoloDepth = y
		}

	case song.EffectPanbrello:
		if x != 0 {
			ch.panbrelloSpeed = x
		}
		if y != 0 {
			ch.panbrelloDepth = y
		}

	case song.EffectVolumeSlide, song.EffectTonePortaVol, song.EffectVibratoVol:
		ch.volume = clamp(ch.volume+s.slideDelta(p, true), 0, 64)

	case song.EffectChannelVolSlide:
		ch.chanVolume = clamp(ch.chanVolume+s.slideDelta(p, true), 0, 64)

	case song.EffectGlobalVolSlide:
		s.globalVolumeSlide(p, true)

	case song.EffectPanningSlide:
		s.panningSlide(ch, p, true)

	case song.EffectPanning8:
		ch.pan = int(p)
		if p == 0xFF {
			ch.pan = 256
		}
		ch.surround = false

	case song.EffectOffset:
		if ch.hasNote {
			s.setOffset(ch, int(p)<<8+ch.highOffset)
		}

	case song.EffectPositionJump:
		s.seq.jumpOrder = int(p)

	case song.EffectPatternBreak:
		s.seq.breakRow = int(p)

	case song.EffectVolume:
		ch.volume = int(min(p, 64))

	case song.EffectChannelVolume:
		ch.chanVolume = int(min(p, 64))

	case song.EffectGlobalVolume:
		s.globalVolume = int(min(p, 128)) * 2

	case song.EffectSpeed:
		if p != 0 {
			s.seq.speed = int(p)
		}

	case song.EffectTempo:
		if p >= 0x20 {
			s.setTempo(int(p))
		}

	case song.EffectKeyOff:
		if p == 0 {
			s.keyOff(ch)
		}

	case song.EffectSetEnvPosition:
		ch.volumeEnvelope.tick = int(p)
		ch.panningEnvelope.tick = int(p)

	case song.EffectFilter:
		if p < 0x80 {
			ch.cutoff = int(p)
		} else {
			ch.resonance = int(p&0x0F) * 8
		}

	case song.EffectModCmdEx:
		s.modExtended(ch, x, y)

	case song.EffectS3MCmdEx:
		s.extended(ch, x, y, false)
	}
}

func (s *Stream) applyTickEffect(ch *streamChannel, tick int) {
	s.applyVolumeColumn(ch, ch.cell, false)

	if ch.cutTick == tick {
		ch.cutTick = -1
		ch.volume = 0
	}

	p := ch.param
	x, y := p>>4, p&0x0F

	switch ch.effect {
	case song.EffectArpeggio:
		switch tick % 3 {
		case 1:
			ch.arpeggio = int(x)
		case 2:
			ch.arpeggio = int(y)
		}

	case song.EffectPortaUp:
		s.portamento(ch, p, true, false)
	case song.EffectPortaDown:
		s.portamento(ch, p, false, false)

	case song.EffectTonePorta:
		s.tonePortamento(ch)

	case song.EffectVibrato:
		s.vibrato(ch, 5)
	case song.EffectFineVibrato:
		s.vibrato(ch, 7)

	case song.EffectTonePortaVol:
		s.tonePortamento(ch)
		ch.volume = clamp(ch.volume+s.slideDelta(p, false), 0, 64)

	case song.EffectVibratoVol:
		s.vibrato(ch, 5)
		ch.volume = clamp(ch.volume+s.slideDelta(p, false), 0, 64)

	case song.EffectVolumeSlide:
		ch.volume = clamp(ch.volume+s.slideDelta(p, false), 0, 64)

	case song.EffectChannelVolSlide:
		ch.chanVolume = clamp(ch.chanVolume+s.slideDelta(p, false), 0, 64)

	case song.EffectGlobalVolSlide:
		s.globalVolumeSlide(p, false)

	case song.EffectPanningSlide:
		s.panningSlide(ch, p, false)

	case song.EffectTremolo:
		s.tremolo(ch)

	case song.EffectTremor:
		s.tremor(ch, x, y)

	case song.EffectPanbrello:
		s.panbrello(ch)

	case song.EffectRetrig:
		s.retrig(ch, x, y)

	case song.EffectTempo:
		if s.spec.TempoSlides && p < 0x20 {
			switch x {
			case 0:
				s.setTempo(s.seq.tempo - int(y))
			case 1:
				s.setTempo(s.seq.tempo + int(y))
			}
		}

	case song.EffectKeyOff:
		if int(p) == tick {
			s.keyOff(ch)
		}

	case song.EffectModCmdEx:
		if x == 0x9 {
			s.retrig(ch, 0, y)
		}
	}
}

func (s *Stream) applyVolumeColumn(ch *streamChannel, cell song.Command, firstTick bool) {
	v := int(cell.Vol)
	switch cell.VolCmd {
	case song.VolVolume:
		if firstTick {
			ch.volume = min(v, 64)
		}
	case song.VolPanning:
		if firstTick {
			ch.pan = min(v*4, 256)
			ch.surround = false
		}
	case song.VolSlideUp:
		if !firstTick {
			ch.volume = clampMax(ch.volume+v, 64)
		}
	case song.VolSlideDown:
		if !firstTick {
			ch.volume = clampMin(ch.volume-v, 0)
		}
	case song.VolFineUp:
		if firstTick {
			ch.volume = clampMax(ch.volume+v, 64)
		}
	case song.VolFineDown:
		if firstTick {
			ch.volume = clampMin(ch.volume-v, 0)
		}
	case song.VolVibratoSpeed:
		if firstTick && v != 0 {
			ch.vibratoSpeed = uint8(v)
		}
	case song.VolVibratoDepth:
		if firstTick {
			if v != 0 {
				ch.vibratoDepth = uint8(v)
			}
		} else {
			s.vibrato(ch, 5)
		}
	case song.VolPanSlideLeft:
		if !firstTick {
			ch.pan = clampMin(ch.pan-v, 0)
		}
	case song.VolPanSlideRight:
		if !firstTick {
			ch.pan = clampMax(ch.pan+v, 256)
		}
	case song.VolTonePorta:
		if firstTick {
			if v != 0 {
				ch.memory[memTonePorta] = uint8(v)
			}
		} else {
			s.tonePortamento(ch)
		}
	case song.VolPortaUp:
		if !firstTick {
			s.slidePeriod(ch, float64(4*v), true)
		}
	case song.VolPortaDown:
		if !firstTick {
			s.slidePeriod(ch, float64(4*v), false)
		}
	case song.VolOffset:
		if firstTick && ch.hasNote {
			s.setOffset(ch, v<<11)
		}
	}
}

// portamento runs Exx/Fxx. The fine (xF) and extra fine (xE) forms
// apply once on the first tick.
func (s *Stream) portamento(ch *streamChannel, p uint8, up, firstTick bool) {
	if s.spec.FineVolumeSlides && p >= 0xE0 {
		if !firstTick {
			return
		}
		amount := float64(p & 0x0F)
		if p >= 0xF0 {
			amount *= 4
		}
		s.slidePeriod(ch, amount, up)
		return
	}
	if firstTick {
		return
	}
	s.slidePeriod(ch, 4*float64(p), up)
}

// slidePeriod moves the pitch. Sliding up lowers the period.
func (s *Stream) slidePeriod(ch *streamChannel, amount float64, up bool) {
	if up {
		ch.period -= amount
	} else {
		ch.period += amount
	}
	if s.song.LinearSlides {
		return
	}
	if s.spec.AmigaLimits {
		ch.period = clamp(ch.period, amigaPeriodMin, amigaPeriodMax)
		return
	}
	ch.period = clampMin(ch.period, 1)
}

func (s *Stream) tonePortamento(ch *streamChannel) {
	if !ch.portaActive {
		return
	}
	speed := 4 * float64(ch.memory[memTonePorta])
	ch.period = slideTowards(ch.period, ch.portaTarget, speed)
	if ch.period == ch.portaTarget {
		ch.portaActive = false
	}
}

// vibrato sets the pitch offset; shift is 5 for normal
// and 7 for fine vibrato.
func (s *Stream) vibrato(ch *streamChannel, shift uint) {
	w := waveValue(ch.vibratoWave, ch.vibratoPos, &ch.rand)
	ch.vibOffset = float64(w*int(ch.vibratoDepth)) / float64(int(1)<<shift)
	ch.vibratoPos += ch.vibratoSpeed
}

func (s *Stream) tremolo(ch *streamChannel) {
	w := waveValue(ch.tremoloWave, ch.tremoloPos, &ch.rand)
	ch.tremOffset = w * int(ch.tremoloDepth) >> 6
	ch.tremoloPos += ch.tremoloSpeed
}

func (s *Stream) panbrello(ch *streamChannel) {
	w := waveValue(ch.panbrelloWave, ch.panbrelloPos, &ch.rand)
	ch.panbOffset = w * int(ch.panbrelloDepth) >> 4
	ch.panbrelloPos += ch.panbrelloSpeed
}

// tremor mutes the channel for y+1 ticks after x+1 audible ticks.
func (s *Stream) tremor(ch *streamChannel, x, y uint8) {
	on, off := int(x)+1, int(y)+1
	ch.tremorCount = (ch.tremorCount + 1) % (on + off)
	ch.tremorMute = ch.tremorCount >= on
}

// retrig restarts the sample every y ticks; x changes the volume.
func (s *Stream) retrig(ch *streamChannel, x, y uint8) {
	if y == 0 {
		return
	}
	ch.retrigCount++
	if ch.retrigCount < int(y) {
		return
	}
	ch.retrigCount = 0
	ch.volume = clamp(retrigVolume(ch.volume, x), 0, 64)
	if ch.smp != nil {
		s.mixer.Start(ch.id, ch.smp, 0)
		s.mixer.SetReverse(ch.id, ch.reverse)
	}
}

func retrigVolume(v int, x uint8) int {
	switch x {
	case 1, 2, 3, 4, 5:
		return v - 1<<(x-1)
	case 6:
		return v * 2 / 3
	case 7:
		return v / 2
	case 9, 10, 11, 12, 13:
		return v + 1<<(x-9)
	case 14:
		return v * 3 / 2
	case 15:
		return v * 2
	}
	return v
}

func (s *Stream) globalVolumeSlide(p uint8, firstTick bool) {
	step := 2
	if s.spec.GlobalVolume64 {
		step = 4
	}
	s.globalVolume = clamp(s.globalVolume+s.slideDelta(p, firstTick)*step, 0, 256)
}

func (s *Stream) panningSlide(ch *streamChannel, p uint8, firstTick bool) {
	step := 1
	if s.spec.FineVolumeSlides {
		step = 4
	}
	ch.pan = clamp(ch.pan+s.slideDelta(p, firstTick)*step, 0, 256)
	ch.surround = false
}

func (s *Stream) setOffset(ch *streamChannel, frames int) {
	if ch.smp == nil || !ch.playing {
		return
	}
	s.mixer.SetPosition(ch.id, frames)
}

// modExtended runs the first tick of a ProTracker Exy command.
// Everything with a ScreamTracker equivalent shares its code.
func (s *Stream) modExtended(ch *streamChannel, x, y uint8) {
	switch x {
	case 0x1:
		s.slidePeriod(ch, 4*float64(y), true)
		return
	case 0x2:
		s.slidePeriod(ch, 4*float64(y), false)
		return
	case 0x9:
		ch.retrigCount = 0
		return
	case 0xA:
		ch.volume = clampMax(ch.volume+int(y), 64)
		return
	case 0xB:
		ch.volume = clampMin(ch.volume-int(y), 0)
		return
	case 0x5:
		s.setFineTune(ch, int(y))
		return
	}
	e := cmdconv.ExtendedMODtoS3M(cmdconv.Effect{Op: song.EffectModCmdEx, Arg: x<<4 | y})
	if e.Op == song.EffectS3MCmdEx {
		s.extended(ch, e.Arg>>4, e.Arg&0x0F, true)
	}
}

// extended runs the first tick of a ScreamTracker Sxy command.
func (s *Stream) extended(ch *streamChannel, x, y uint8, fromMOD bool) {
	switch x {
	case 0x1:
		ch.glissando = y != 0
	case 0x2:
		s.setFineTune(ch, int(y))
	case 0x3:
		ch.vibratoWave, ch.vibratoKeep = effectWaveform(y)
	case 0x4:
		ch.tremoloWave, ch.tremoloKeep = effectWaveform(y)
	case 0x5:
		ch.panbrelloWave, _ = effectWaveform(y)
		ch.panbrelloPos = 0
	case 0x6:
		s.seq.extraTicks += int(y)
	case 0x7:
		s.envelopeControl(ch, y)
	case 0x8:
		ch.pan = int(y) * 256 / 15
		ch.surround = false
	case 0x9:
		switch y {
		case 0x0:
			ch.surround = false
		case 0x1:
			ch.surround = true
		case 0xE:
			ch.reverse = false
			s.mixer.SetReverse(ch.id, false)
		case 0xF:
			ch.reverse = true
			s.mixer.SetReverse(ch.id, true)
		}
	case 0xA:
		ch.highOffset = int(y) << 16
	case 0xB:
		s.patternLoop(ch, int(y))
	case 0xC:
		switch {
		case y != 0:
			ch.cutTick = int(y)
		case fromMOD:
			ch.volume = 0
		default:
			ch.cutTick = 1
		}
	case 0xE:
		if s.seq.patternDelay == 0 {
			s.seq.patternDelay = int(y)
		}
	}
}

func (s *Stream) patternLoop(ch *streamChannel, count int) {
	if count == 0 {
		ch.patternLoopRow = s.seq.row
		return
	}
	if ch.patternLoopCount == 0 {
		ch.patternLoopCount = count
	} else {
		ch.patternLoopCount--
		if ch.patternLoopCount == 0 {
			return
		}
	}
	s.seq.loopJump = true
	s.seq.loopRow = ch.patternLoopRow
}

// envelopeControl handles S77..S7C.
func (s *Stream) envelopeControl(ch *streamChannel, y uint8) {
	set := func(e *envelopeRunner, on bool) {
		e.enabled, e.disabled = on, !on
	}
	switch y {
	case 0x7:
		set(&ch.volumeEnvelope, false)
	case 0x8:
		set(&ch.volumeEnvelope, true)
	case 0x9:
		set(&ch.panningEnvelope, false)
	case 0xA:
		set(&ch.panningEnvelope, true)
	case 0xB:
		set(&ch.pitchEnvelope, false)
	case 0xC:
		set(&ch.pitchEnvelope, true)
	}
}

// setFineTune handles E5x/S2x: the nibble is a signed finetune in
// 1/8 semitones that replaces the sample default.
func (s *Stream) setFineTune(ch *streamChannel, nibble int) {
	if ch.smp == nil {
		return
	}
	if nibble >= 8 {
		nibble -= 16
	}
	fineTune := nibble * 16
	if s.spec.UsesTranspose {
		ch.c5 = song.TransposeToFrequency(int(ch.smp.RelativeTone), fineTune)
	} else {
		ch.c5 = uint32(float64(ch.smp.SampleRate(s.song.Format)) * math.Pow(2, float64(fineTune)/(12*128)))
	}
	if ch.hasNote {
		ch.period = s.notePeriod(ch.note, ch.c5)
	}
}

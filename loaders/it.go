package loaders

import (
	"fmt"
	"strings"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

type itFileHeader struct {
	Magic        [4]byte
	Name         [26]byte
	Highlight    uint16
	OrdNum       uint16
	InsNum       uint16
	SmpNum       uint16
	PatNum       uint16
	CreatedWith  uint16
	Compatible   uint16
	Flags        uint16
	Special      uint16
	GlobalVolume uint8 // 0..128
	MixVolume    uint8
	Speed        uint8
	Tempo        uint8
	Separation   uint8
	PWD          uint8
	MsgLength    uint16
	MsgOffset    uint32
	Reserved     uint32
	ChannelPan   [64]uint8
	ChannelVol   [64]uint8
}

type itEnvelopeNode struct {
	Value int8
	Tick  uint16
}

type itEnvelope struct {
	Flags        uint8
	Num          uint8
	LoopStart    uint8
	LoopEnd      uint8
	SustainStart uint8
	SustainEnd   uint8
	Nodes        [25]itEnvelopeNode
	Reserved     uint8
}

type itInstrumentHeader struct {
	Magic           [4]byte
	Filename        [12]byte
	Zero            uint8
	NNA             uint8
	DCT             uint8
	DCA             uint8
	FadeOut         uint16
	PPS             int8
	PPC             uint8
	GlobalVolume    uint8 // 0..128
	DefaultPan      uint8 // bit 7 = disabled
	RandomVolume    uint8
	RandomPan       uint8
	TrackerVersion  uint16
	NumSamples      uint8
	Reserved1       uint8
	Name            [26]byte
	FilterCutoff    uint8
	FilterResonance uint8
	MIDIChannel     uint8
	MIDIProgram     uint8
	MIDIBank        uint16
	Keyboard        [240]uint8
	VolumeEnv       itEnvelope
	PanningEnv      itEnvelope
	PitchEnv        itEnvelope
	Reserved2       [4]byte
}

// itOldInstrumentHeader is the instrument layout of files made
// with Impulse Tracker versions before 2.00.
type itOldInstrumentHeader struct {
	Magic          [4]byte
	Filename       [12]byte
	Zero           uint8
	Flags          uint8
	LoopStart      uint8
	LoopEnd        uint8
	SustainStart   uint8
	SustainEnd     uint8
	Reserved1      uint16
	FadeOut        uint16
	NNA            uint8
	DNC            uint8
	TrackerVersion uint16
	NumSamples     uint8
	Reserved2      uint8
	Name           [26]byte
	Reserved3      [6]byte
	Keyboard       [240]uint8
	VolumeEnv      [200]uint8
	Nodes          [50]uint8 // tick, value pairs
}

type itSampleHeader struct {
	Magic        [4]byte
	Filename     [12]byte
	Zero         uint8
	GlobalVolume uint8
	Flags        uint8
	Volume       uint8
	Name         [26]byte
	Convert      uint8
	DefaultPan   uint8
	Length       uint32
	LoopStart    uint32
	LoopEnd      uint32
	C5Speed      uint32
	SustainStart uint32
	SustainEnd   uint32
	DataPointer  uint32
	VibratoSpeed uint8
	VibratoDepth uint8
	VibratoRate  uint8
	VibratoType  uint8
}

const (
	itFlagStereo      = 0x01
	itFlagInstruments = 0x04
	itFlagLinear      = 0x08

	itSpecialMessage = 0x01

	itSmpData        = 0x01
	itSmp16Bit       = 0x02
	itSmpStereo      = 0x04
	itSmpCompressed  = 0x08
	itSmpLoop        = 0x10
	itSmpSustain     = 0x20
	itSmpPingPong    = 0x40
	itSmpPingPongSus = 0x80

	itCvtSigned = 0x01
	itCvtDelta  = 0x04

	itEnvEnabled = 0x01
	itEnvLoop    = 0x02
	itEnvSustain = 0x04
	itEnvCarry   = 0x08
	itEnvFilter  = 0x80

	itMaxChannels = 64
)

func detectIT(r *fileread.Reader) (song.Format, bool) {
	if !r.ReadMagic("IMPM") {
		return song.FormatNone, false
	}
	return song.FormatIT, true
}

func loadIT(p *parser) {
	p.startStage("header")
	var h itFileHeader
	p.readStruct(&h, "file header")

	spec := song.FormatIT.Spec()
	s := p.newSong(song.FormatIT, itMaxChannels)
	s.Title = fileread.FixString(h.Name[:], fileread.MaybeNullTerminated)
	s.TrackerName = trackerIT(h.CreatedWith)
	s.DefaultGlobalVolume = int(min(h.GlobalVolume, 128)) * 2
	if h.Speed != 0 {
		s.DefaultSpeed = int(h.Speed)
	}
	if h.Tempo >= 32 {
		s.DefaultTempo = int(h.Tempo)
	}
	s.PreAmp = int(min(h.MixVolume, 128))
	s.LinearSlides = h.Flags&itFlagLinear != 0
	stereo := h.Flags&itFlagStereo != 0
	for i := range s.Channels {
		ch := &s.Channels[i]
		ch.Muted = h.ChannelPan[i]&0x80 != 0
		pan := h.ChannelPan[i] & 0x7F
		switch {
		case pan == 100:
			ch.Surround = true
			ch.Pan = 128
		case !stereo:
			ch.Pan = 128
		default:
			ch.Pan = uint16(min(pan, 64)) * 4
		}
		ch.Volume = min(h.ChannelVol[i], 64)
	}

	p.startStage("orders")
	s.Order().SetFromBytes(p.read(int(h.OrdNum), "order list"))

	readOffsets := func(n int, what string) []int {
		offsets := make([]int, n)
		for i := range offsets {
			offsets[i] = int(p.readDword(what))
		}
		return offsets
	}
	instrumentOffsets := readOffsets(int(h.InsNum), "instrument pointer")
	sampleOffsets := readOffsets(int(h.SmpNum), "sample pointer")
	patternOffsets := readOffsets(int(h.PatNum), "pattern pointer")

	if h.Special&itSpecialMessage != 0 && h.MsgLength > 0 {
		if r := p.r.ChunkAt(int(h.MsgOffset), int(h.MsgLength)); r.Len() > 0 {
			msg := fileread.FixString(r.Bytes(), fileread.MaybeNullTerminated)
			s.Message = strings.ReplaceAll(msg, "\r", "\n")
		}
	}

	if len(sampleOffsets) > spec.SamplesMax {
		p.warn("%d samples, only the first %d are loaded", len(sampleOffsets), spec.SamplesMax)
		sampleOffsets = sampleOffsets[:spec.SamplesMax]
	}
	if len(instrumentOffsets) > spec.InstrumentsMax {
		p.warn("%d instruments, only the first %d are loaded", len(instrumentOffsets), spec.InstrumentsMax)
		instrumentOffsets = instrumentOffsets[:spec.InstrumentsMax]
	}
	if len(patternOffsets) > spec.PatternsMax {
		p.warn("%d patterns, only the first %d are loaded", len(patternOffsets), spec.PatternsMax)
		patternOffsets = patternOffsets[:spec.PatternsMax]
	}

	if h.Flags&itFlagInstruments != 0 {
		p.startStage("instrument")
		for i, offset := range instrumentOffsets {
			p.stageIndex = i
			_, ins, err := s.AddInstrument()
			if err != nil {
				p.failErr(err, "instrument")
			}
			if offset == 0 {
				continue
			}
			p.seek(offset, "instrument header")
			if h.Compatible < 0x200 {
				p.readITOldInstrument(ins, len(sampleOffsets))
			} else {
				p.readITInstrument(ins, len(sampleOffsets))
			}
		}
	}

	p.startStage("sample")
	type pendingData struct {
		smp        *song.Sample
		offset     int
		compressed bool
		it215      bool
		sio        sampleIO
	}
	var pending []pendingData
	for i, offset := range sampleOffsets {
		p.stageIndex = i
		smp := p.addSample()
		if offset == 0 {
			continue
		}
		p.seek(offset, "sample header")
		var sh itSampleHeader
		p.readStruct(&sh, "sample header")
		if string(sh.Magic[:]) != "IMPS" {
			p.warn("sample %d: bad header magic", i+1)
			continue
		}
		smp.Name = fileread.FixString(sh.Name[:], fileread.MaybeNullTerminated)
		smp.Filename = fileread.FixString(sh.Filename[:], fileread.MaybeNullTerminated)
		smp.GlobalVolume = min(sh.GlobalVolume, 64)
		smp.Volume = uint16(min(sh.Volume, 64)) * 4
		if sh.DefaultPan&0x80 != 0 {
			smp.Flags |= song.SamplePanning
			smp.Pan = uint16(min(sh.DefaultPan&0x7F, 64)) * 4
		}
		smp.C5Speed = sh.C5Speed
		if smp.C5Speed == 0 {
			smp.C5Speed = 8363
		}
		smp.VibratoRate = sh.VibratoSpeed
		smp.VibratoDepth = sh.VibratoDepth
		smp.VibratoSweep = sh.VibratoRate
		smp.VibratoType = itVibratoType(sh.VibratoType)

		if sh.Flags&itSmpData == 0 {
			continue
		}
		smp.Length = int(min(sh.Length, song.MaxSampleLength))
		smp.SetLoop(int(sh.LoopStart), int(sh.LoopEnd), sh.Flags&itSmpLoop != 0, sh.Flags&itSmpPingPong != 0)
		smp.SetSustainLoop(int(sh.SustainStart), int(sh.SustainEnd), sh.Flags&itSmpSustain != 0, sh.Flags&itSmpPingPongSus != 0)
		if sh.Flags&itSmpStereo != 0 {
			p.warn("sample %d: stereo sample, right channel dropped", i+1)
		}

		d := pendingData{
			smp:        smp,
			offset:     int(sh.DataPointer),
			compressed: sh.Flags&itSmpCompressed != 0,
			it215:      sh.Convert&itCvtDelta != 0,
			sio: sampleIO{
				bits:     8,
				unsigned: sh.Convert&itCvtSigned == 0,
				delta:    sh.Convert&itCvtDelta != 0,
			},
		}
		if sh.Flags&itSmp16Bit != 0 {
			d.sio.bits = 16
		}
		pending = append(pending, d)
	}

	if p.opts.HeaderOnly {
		p.trimITChannels()
		return
	}

	p.startStage("pattern")
	for i, offset := range patternOffsets {
		p.stageIndex = i
		if offset == 0 {
			p.insertPattern(i, 64)
			continue
		}
		p.seek(offset, "pattern")
		length := int(p.readWord("packed pattern length"))
		rows := int(p.readWord("number of rows"))
		if !spec.ValidRows(rows) {
			p.fail("invalid number of rows: %d", rows)
		}
		p.skip(4, "pattern reserved")
		p.readITPattern(p.insertPattern(i, rows), length)
	}

	p.startStage("sample data")
	for i, d := range pending {
		p.stageIndex = i
		p.seek(min(d.offset, p.r.Len()), "sample data")
		if !d.compressed {
			p.readSample(d.smp, d.sio, "sample data")
			continue
		}
		p.allocSample(d.smp, d.smp.Length)
		if d.sio.bits == 16 {
			d.smp.Flags |= song.Sample16Bit
		}
		p.r.Skip(decompressIT(d.smp.Data(), p.r.Remaining(), d.sio.bits == 16, d.it215))
	}

	p.trimITChannels()
}

// trimITChannels drops the unused channels past the last one
// that carries pattern data.
func (p *parser) trimITChannels() {
	s := p.song
	used := 1
	for _, pat := range s.Patterns.All() {
		if pat == nil {
			continue
		}
		for row := 0; row < pat.Rows(); row++ {
			for ch, c := range pat.Row(row) {
				if !c.IsEmpty() {
					used = max(used, ch+1)
				}
			}
		}
	}
	if p.opts.HeaderOnly {
		// No pattern data to look at: keep the channels that are enabled.
		used = 1
		for i, ch := range s.Channels {
			if !ch.Muted {
				used = i + 1
			}
		}
	}
	if used == s.NumChannels() {
		return
	}
	if err := s.ChangeNumChannels(used); err != nil {
		p.failErr(err, "channels")
	}
}

func (p *parser) readITPattern(pattern *song.Pattern, length int) {
	r := p.newCellReader(p.r.Chunk(length), length)

	var lastMask [itMaxChannels]uint8
	var last [itMaxChannels]song.Command
	var lastVol [itMaxChannels]uint8
	var lastEffect, lastParam [itMaxChannels]uint8

	row := 0
	for row < pattern.Rows() {
		cv, ok := r.control(true)
		if !ok {
			return
		}
		if cv == 0 {
			row++
			continue
		}
		ch := int(cv-1) & (itMaxChannels - 1)
		mask := lastMask[ch]
		if cv&0x80 != 0 {
			if mask, ok = r.byte(); !ok {
				return
			}
			lastMask[ch] = mask
		}
		if mask&0x01 != 0 {
			note, ok := r.byte()
			if !ok {
				return
			}
			last[ch].Note = itNote(note)
		}
		if mask&0x02 != 0 {
			instr, ok := r.byte()
			if !ok {
				return
			}
			last[ch].Instr = instr
		}
		if mask&0x04 != 0 {
			if lastVol[ch], ok = r.byte(); !ok {
				return
			}
		}
		if mask&0x08 != 0 {
			if lastEffect[ch], lastParam[ch], ok = r.pair(); !ok {
				return
			}
		}
		if ch >= pattern.Channels() {
			continue
		}
		c := pattern.Cell(row, ch)
		if mask&(0x01|0x10) != 0 {
			c.Note = last[ch].Note
		}
		if mask&(0x02|0x20) != 0 {
			c.Instr = last[ch].Instr
		}
		if mask&(0x04|0x40) != 0 {
			cmdconv.ITVolume(lastVol[ch]).Apply(c)
		}
		if mask&(0x08|0x80) != 0 {
			cmdconv.IT(lastEffect[ch], lastParam[ch]).Apply(c)
		}
	}
}

func itNote(n uint8) uint8 {
	switch {
	case n < 120:
		return n + song.NoteMin
	case n == 255:
		return song.NoteKeyOff
	case n == 254:
		return song.NoteCut
	}
	return song.NoteFade
}

func (p *parser) readITInstrument(ins *song.Instrument, numSamples int) {
	var h itInstrumentHeader
	p.readStruct(&h, "instrument header")
	ins.Name = fileread.FixString(h.Name[:], fileread.MaybeNullTerminated)
	ins.Filename = fileread.FixString(h.Filename[:], fileread.MaybeNullTerminated)
	ins.FadeOut = uint32(h.FadeOut) << 6
	ins.GlobalVolume = min(h.GlobalVolume, 128) / 2
	if h.DefaultPan&0x80 == 0 {
		ins.HasPan = true
		ins.Pan = uint16(min(h.DefaultPan, 64)) * 4
	}
	if h.FilterCutoff&0x80 != 0 {
		ins.FilterCutoff = int(h.FilterCutoff & 0x7F)
	}
	if h.FilterResonance&0x80 != 0 {
		ins.FilterResonance = int(h.FilterResonance & 0x7F)
	}
	ins.MIDIProgram = h.MIDIProgram
	p.setITKeyboard(ins, h.Keyboard[:], numSamples)

	ins.VolumeEnvelope = convertITEnvelope(&h.VolumeEnv, 0)
	ins.PanningEnvelope = convertITEnvelope(&h.PanningEnv, 32)
	ins.PitchEnvelope = convertITEnvelope(&h.PitchEnv, 32)
	if h.PitchEnv.Flags&itEnvFilter != 0 {
		ins.PitchEnvelope.Flags |= song.EnvelopeFilter
	}
}

func (p *parser) readITOldInstrument(ins *song.Instrument, numSamples int) {
	var h itOldInstrumentHeader
	p.readStruct(&h, "instrument header")
	ins.Name = fileread.FixString(h.Name[:], fileread.MaybeNullTerminated)
	ins.Filename = fileread.FixString(h.Filename[:], fileread.MaybeNullTerminated)
	ins.FadeOut = uint32(h.FadeOut) << 7
	p.setITKeyboard(ins, h.Keyboard[:], numSamples)

	env := song.Envelope{
		LoopStart:    h.LoopStart,
		LoopEnd:      h.LoopEnd,
		SustainStart: h.SustainStart,
		SustainEnd:   h.SustainEnd,
		ReleaseNode:  song.NoReleaseNode,
	}
	for i := 0; i+1 < len(h.Nodes); i += 2 {
		if h.Nodes[i] == 0xFF {
			break
		}
		env.Nodes = append(env.Nodes, song.EnvelopeNode{Tick: uint16(h.Nodes[i]), Value: min(h.Nodes[i+1], 64)})
	}
	if h.Flags&0x01 != 0 {
		env.Flags |= song.EnvelopeEnabled
	}
	if h.Flags&0x02 != 0 {
		env.Flags |= song.EnvelopeLoop
	}
	if h.Flags&0x04 != 0 {
		env.Flags |= song.EnvelopeSustain
	}
	ins.VolumeEnvelope = env
}

func (p *parser) setITKeyboard(ins *song.Instrument, keyboard []uint8, numSamples int) {
	for i := 0; i < song.NoteCount; i++ {
		note, smp := keyboard[i*2], keyboard[i*2+1]
		if note < 120 {
			ins.NoteMap[i] = note + song.NoteMin
		}
		if int(smp) <= numSamples {
			ins.Keyboard[i] = song.SampleIndex(smp)
		}
	}
}

// convertITEnvelope shifts signed node values by center.
func convertITEnvelope(e *itEnvelope, center int) song.Envelope {
	env := song.Envelope{
		LoopStart:    e.LoopStart,
		LoopEnd:      e.LoopEnd,
		SustainStart: e.SustainStart,
		SustainEnd:   e.SustainEnd,
		ReleaseNode:  song.NoReleaseNode,
	}
	n := min(int(e.Num), len(e.Nodes))
	for _, node := range e.Nodes[:n] {
		v := max(0, min(int(node.Value)+center, 64))
		env.Nodes = append(env.Nodes, song.EnvelopeNode{Tick: node.Tick, Value: uint8(v)})
	}
	if e.Flags&itEnvEnabled != 0 {
		env.Flags |= song.EnvelopeEnabled
	}
	if e.Flags&itEnvLoop != 0 {
		env.Flags |= song.EnvelopeLoop
	}
	if e.Flags&itEnvSustain != 0 {
		env.Flags |= song.EnvelopeSustain
	}
	if e.Flags&itEnvCarry != 0 {
		env.Flags |= song.EnvelopeCarry
	}
	return env
}

func itVibratoType(v uint8) song.VibratoType {
	switch v & 3 {
	case 1:
		return song.VibratoRampDown
	case 2:
		return song.VibratoSquare
	case 3:
		return song.VibratoRandom
	}
	return song.VibratoSine
}

func trackerIT(version uint16) string {
	switch version >> 12 {
	case 0:
		return fmt.Sprintf("Impulse Tracker %d.%02x", version>>8&0x0F, version&0xFF)
	case 1:
		return "Schism Tracker"
	case 5:
		return "OpenMPT"
	}
	return ""
}

package loaders

import (
	"strings"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

// General Digital Music files are converted from other trackers by 2GDM.
// A file plays like its original format would.

type gdmFileHeader struct {
	Magic           [4]byte
	Title           [32]byte
	Musician        [32]byte
	DOSEOF          [3]byte
	Magic2          [4]byte
	FormatMajor     uint8
	FormatMinor     uint8
	TrackerID       uint16
	TrackerMajor    uint8
	TrackerMinor    uint8
	PanMap          [32]uint8 // 0..15, 16 = surround, 255 = unused
	MasterVolume    uint8     // 0..64
	Tempo           uint8
	BPM             uint8
	OriginalFormat  uint16
	OrderOffset     uint32
	LastOrder       uint8
	PatternOffset   uint32
	LastPattern     uint8
	SampleHdrOffset uint32
	SampleOffset    uint32
	LastSample      uint8
	MessageOffset   uint32
	MessageLength   uint32
	ScrollyOffset   uint32
	ScrollyLength   uint16
	GraphicOffset   uint32
	GraphicLength   uint16
}

type gdmSampleHeader struct {
	Name      [32]byte
	Filename  [12]byte
	EMSHandle uint8
	Length    uint32 // in bytes
	LoopBegin uint32 // in frames
	LoopEnd   uint32 // in frames, exclusive + 1
	Flags     uint8
	C4Hertz   uint16
	Volume    uint8
	Pan       uint8
}

const (
	gdmSmpLoop    = 0x01
	gdmSmp16Bit   = 0x02
	gdmSmpVolume  = 0x04
	gdmSmpPanning = 0x08
	gdmSmpLZW     = 0x10
	gdmSmpStereo  = 0x20

	gdmNoteFlag   = 0x20
	gdmEffectFlag = 0x40
	gdmEffectMore = 0x20
)

// gdmOrigins maps the original format ID (1-MOD, 2-MTM, 3-S3M, 4-669,
// 5-FAR, 6-ULT, 7-STM, 8-MED) to the family the song loads as.
var gdmOrigins = [...]song.Format{
	song.FormatNone,
	song.FormatMOD,
	song.FormatS3M,
	song.FormatS3M,
	song.FormatS3M,
	song.FormatS3M,
	song.FormatS3M,
	song.FormatS3M,
	song.FormatS3M,
}

// gdmEffects translates the 32 GDM effect codes.
var gdmEffects = [32]song.EffectCommand{
	song.EffectNone, song.EffectPortaUp, song.EffectPortaDown, song.EffectTonePorta,
	song.EffectVibrato, song.EffectTonePortaVol, song.EffectVibratoVol, song.EffectTremolo,
	song.EffectTremor, song.EffectOffset, song.EffectVolumeSlide, song.EffectPositionJump,
	song.EffectVolume, song.EffectPatternBreak, song.EffectModCmdEx, song.EffectSpeed,
	song.EffectArpeggio, song.EffectNone, song.EffectRetrig, song.EffectGlobalVolume,
	song.EffectFineVibrato, song.EffectNone, song.EffectNone, song.EffectNone,
	song.EffectNone, song.EffectNone, song.EffectNone, song.EffectNone,
	song.EffectNone, song.EffectNone, song.EffectS3MCmdEx, song.EffectTempo,
}

func checkGDMHeader(h *gdmFileHeader) (song.Format, bool) {
	if string(h.Magic[:]) != "GDM\xFE" ||
		h.DOSEOF != [3]byte{13, 10, 26} ||
		string(h.Magic2[:]) != "GMFS" ||
		h.FormatMajor != 1 || h.FormatMinor != 0 {
		return song.FormatNone, false
	}
	f := gdmOrigins[int(h.OriginalFormat)%len(gdmOrigins)]
	return f, f != song.FormatNone
}

func detectGDM(r *fileread.Reader) (song.Format, bool) {
	var h gdmFileHeader
	if !r.ReadStruct(leOrder, &h) {
		return song.FormatNone, false
	}
	return checkGDMHeader(&h)
}

func loadGDM(p *parser) {
	p.startStage("header")
	var h gdmFileHeader
	p.readStruct(&h, "file header")
	family, ok := checkGDMHeader(&h)
	if !ok {
		p.fail("not a GDM file")
	}

	numChannels := len(h.PanMap)
	for i, pan := range h.PanMap {
		if pan == 0xFF {
			numChannels = i
			break
		}
	}
	if numChannels == 0 {
		p.fail("no channels")
	}

	s := p.newSong(family, numChannels)
	s.Title = fileread.FixString(h.Title[:], fileread.MaybeNullTerminated)
	s.Artist = fileread.FixString(h.Musician[:], fileread.MaybeNullTerminated)
	s.TrackerName = "BWSB 2GDM"
	for i := range s.Channels {
		switch pan := h.PanMap[i]; {
		case pan < 16:
			s.Channels[i].Pan = min(uint16(pan)*16+8, 256)
		case pan == 16:
			s.Channels[i].Pan = 128
			s.Channels[i].Surround = true
		}
	}
	s.DefaultGlobalVolume = min(int(h.MasterVolume)*4, 256)
	if h.Tempo != 0 {
		s.DefaultSpeed = int(h.Tempo)
	}
	if h.BPM >= 32 {
		s.DefaultTempo = int(h.BPM)
	}

	p.startStage("orders")
	if p.r.Seek(int(h.OrderOffset)) {
		s.Order().SetFromBytes(p.readAvailable(int(h.LastOrder)+1, "order list"))
	}

	p.startStage("sample")
	p.seek(int(h.SampleHdrOffset), "sample headers")
	numSamples := int(h.LastSample) + 1
	for i := 0; i < numSamples; i++ {
		p.stageIndex = i
		var sh gdmSampleHeader
		p.readStruct(&sh, "sample header")
		smp := p.addSample()
		p.convertGDMSample(smp, &sh, family)
	}

	if p.opts.HeaderOnly {
		p.readGDMMessage(&h)
		return
	}

	p.startStage("sample data")
	if p.r.Seek(int(h.SampleOffset)) {
		for i := 1; i <= s.NumSamples(); i++ {
			p.stageIndex = i - 1
			smp := s.Samples[i]
			sio := sampleIO{bits: 8, unsigned: true}
			if smp.Flags.Has(song.Sample16Bit) {
				sio.bits = 16
			}
			p.readSample(smp, sio, "sample data")
		}
	} else {
		p.truncated("sample data", 0, int(h.SampleOffset))
	}

	p.startStage("pattern")
	p.seek(int(h.PatternOffset), "patterns")
	for i := 0; i <= int(h.LastPattern); i++ {
		p.stageIndex = i
		if !p.r.CanRead(2) {
			p.truncated("patterns", i, int(h.LastPattern)+1)
			break
		}
		length := int(p.readWord("pattern length"))
		pattern := p.insertPattern(i, 64)
		if length <= 2 {
			continue
		}
		p.readGDMPattern(pattern, length-2)
	}

	p.readGDMMessage(&h)
}

func (p *parser) convertGDMSample(smp *song.Sample, sh *gdmSampleHeader, family song.Format) {
	smp.Name = fileread.FixString(sh.Name[:], fileread.MaybeNullTerminated)
	smp.Filename = fileread.FixString(sh.Filename[:], fileread.MaybeNullTerminated)

	length := int(min(sh.Length, song.MaxSampleLength))
	if sh.Flags&gdmSmp16Bit != 0 {
		smp.Flags |= song.Sample16Bit
		length /= 2
	}
	if sh.Flags&(gdmSmpLZW|gdmSmpStereo) != 0 {
		p.warn("sample flags %#02x are not supported", sh.Flags&(gdmSmpLZW|gdmSmpStereo))
	}
	smp.Length = length

	if sh.Flags&gdmSmpLoop != 0 {
		smp.Flags |= song.SampleLoop
		smp.LoopStart = min(int(sh.LoopBegin), length)
		if sh.LoopEnd > 0 {
			smp.LoopEnd = min(int(sh.LoopEnd)-1, length)
		}
	}

	smp.C5Speed = uint32(sh.C4Hertz)
	if family.Spec().UsesTranspose {
		smp.FrequencyToTranspose()
		smp.C5Speed = 0
		if family == song.FormatMOD {
			// MOD samples have no transpose; fold it into the finetune.
			fine := int(smp.RelativeTone)*128 + int(smp.FineTune)
			smp.RelativeTone = 0
			smp.FineTune = int8(max(-128, min(fine, 127)))
		}
	}

	if sh.Flags&gdmSmpVolume != 0 {
		smp.Volume = uint16(min(sh.Volume, 64)) * 4
	}
	if sh.Flags&gdmSmpPanning != 0 {
		smp.Flags |= song.SamplePanning
		if sh.Pan > 15 {
			smp.Pan = 128
		} else {
			smp.Pan = min(uint16(sh.Pan)*16+8, 256)
		}
	}
}

func (p *parser) readGDMPattern(pattern *song.Pattern, length int) {
	r := p.newCellReader(p.r.Chunk(length), length)
	spec := p.song.Spec()

	for row := 0; row < 64; row++ {
		for {
			b, ok := r.control(true)
			if !ok || b == 0 {
				break
			}
			ch := int(b & 0x1F)
			var c song.Command
			if ch < pattern.Channels() {
				c = *pattern.Cell(row, ch)
			}

			if b&gdmNoteFlag != 0 {
				note, instr, ok := r.pair()
				if !ok {
					return
				}
				if note != 0 {
					// No note cuts in this format.
					n := note&0x7F - 1
					if n < 0xF0 {
						n = n&0x0F + 12*(n>>4) + 13
					}
					if song.IsNote(n) {
						c.Note = n
					}
				}
				c.Instr = instr
			}

			if b&gdmEffectFlag != 0 {
				c.Effect, c.Param = song.EffectNone, 0
				c.VolCmd, c.Vol = song.VolNone, 0
				for {
					eff, param, ok := r.pair()
					if !ok {
						return
					}
					p.convertGDMEffect(&c, eff&0x1F, param, spec)
					if eff&gdmEffectMore == 0 {
						break
					}
				}
			}

			if ch < pattern.Channels() {
				*pattern.Cell(row, ch) = c
			}
		}
	}
}

// convertGDMEffect applies one effect of a cell. Cells may carry
// more than one; a later effect replaces an earlier one unless it
// ends up in the volume column.
func (p *parser) convertGDMEffect(c *song.Command, code, param uint8, spec *song.Specification) {
	old := *c
	c.Effect, c.Param = gdmEffects[code], param
	restore := func() { c.Effect, c.Param = old.Effect, old.Param }

	switch c.Effect {
	case song.EffectPortaUp, song.EffectPortaDown:
		if c.Param >= 0xE0 {
			c.Param = 0xDF
		}
	case song.EffectTonePortaVol, song.EffectVibratoVol:
		if c.Param&0xF0 != 0 {
			c.Param &= 0xF0
		}
	case song.EffectVolume:
		c.Param = min(c.Param, 64)
		if spec.VolumeCommands.Has(song.VolVolume) {
			c.VolCmd, c.Vol = song.VolVolume, c.Param
			restore()
			return
		}
	case song.EffectModCmdEx:
		if !spec.Effects.Has(song.EffectModCmdEx) {
			e := cmdconv.ExtendedMODtoS3M(cmdconv.Effect{Op: c.Effect, Arg: c.Param})
			c.Effect, c.Param = e.Op, e.Arg
		}
	case song.EffectRetrig:
		if !spec.Effects.Has(song.EffectRetrig) && spec.Effects.Has(song.EffectModCmdEx) {
			c.Effect, c.Param = song.EffectModCmdEx, 0x90|c.Param&0x0F
		}
	case song.EffectS3MCmdEx:
		p.convertGDMExtended(c, code)
	}

	// Panning goes to the volume column when it is free.
	if (c.Effect == song.EffectS3MCmdEx || c.Effect == song.EffectModCmdEx) && c.Param>>4 == 0x8 &&
		c.VolCmd == song.VolNone && spec.VolumeCommands.Has(song.VolPanning) {
		c.VolCmd, c.Vol = song.VolPanning, uint8((int(c.Param&0x0F)*64+8)/15)
		restore()
		return
	}

	if c.Effect == song.EffectNone && code != 0 {
		p.dropGDMEffect(code, param)
		restore()
		return
	}
	if !spec.Effects.Has(c.Effect) {
		p.dropGDMEffect(code, param)
		c.Effect, c.Param = song.EffectNone, 0
	}
}

func (p *parser) convertGDMExtended(c *song.Command, code uint8) {
	x := c.Param & 0x0F
	switch c.Param >> 4 {
	case 0x0:
		switch x {
		case 0x0:
			c.Param = 0x90 // surround off
		case 0x1:
			c.Param = 0x91 // surround on
		case 0x4:
			c.Param = 0x9E // play forward
		case 0x5:
			c.Param = 0x9F // play backward
		default:
			// Loop mode, mono/stereo and stop/loop at the end
			// were never implemented by the player.
			c.Effect, c.Param = song.EffectNone, 0
		}
	case 0x8:
		if !p.song.Spec().Effects.Has(song.EffectS3MCmdEx) {
			c.Effect = song.EffectModCmdEx
		}
	default:
		// Frequency adjust and the rest.
		c.Effect, c.Param = song.EffectNone, 0
	}
}

// dropGDMEffect records one warning per distinct effect code.
func (p *parser) dropGDMEffect(code, param uint8) {
	p.log.Debug("gdm: unsupported effect", "stage", p.formatStage(), "effect", code, "param", param)
	if p.song != nil {
		p.song.Warn("unsupported GDM effect %#02x", code)
	}
}

func (p *parser) readGDMMessage(h *gdmFileHeader) {
	if h.MessageLength == 0 {
		return
	}
	r := p.r.ChunkAt(int(h.MessageOffset), int(min(h.MessageLength, 1<<20)))
	if r.Len() == 0 {
		return
	}
	msg := fileread.FixString(r.Bytes(), fileread.MaybeNullTerminated)
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	p.song.Message = strings.ReplaceAll(msg, "\r", "\n")
}

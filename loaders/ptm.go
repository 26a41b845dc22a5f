package loaders

import (
	"fmt"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

type ptmFileHeader struct {
	Name           [28]byte
	DOSEOF         uint8
	VersionLo      uint8
	VersionHi      uint8
	Reserved1      uint8
	NumOrders      uint16
	NumSamples     uint16
	NumPatterns    uint16
	NumChannels    uint16
	Flags          [2]byte
	Reserved2      [2]byte
	Magic          [4]byte
	Reserved3      [16]byte
	ChannelPan     [32]uint8 // 0..15, 7 is the middle
	Orders         [256]uint8
	PatternOffsets [128]uint16 // in 16-byte paragraphs
}

type ptmSampleHeader struct {
	Flags      uint8
	Filename   [12]byte
	Volume     uint8
	C4Speed    uint16
	Segment    [2]byte
	DataOffset uint32
	Length     uint32 // in bytes
	LoopStart  uint32
	LoopEnd    uint32
	GUSData    [14]byte
	Name       [28]byte
	Magic      [4]byte
}

const (
	ptmSmpTypeMask = 0x03
	ptmSmpPCM      = 0x01
	ptmSmpLoop     = 0x04
	ptmSmpPingPong = 0x08
	ptmSmp16Bit    = 0x10

	ptmSampleHeaderSize = 80
)

// checkPTMHeader validates the counts of a header.
func checkPTMHeader(h *ptmFileHeader) error {
	switch {
	case string(h.Magic[:]) != "PTMF":
		return fmt.Errorf("bad magic %q", h.Magic[:])
	case h.NumChannels == 0 || h.NumChannels > 32:
		return fmt.Errorf("invalid number of channels: %d", h.NumChannels)
	case h.NumOrders == 0 || h.NumOrders > 256:
		return fmt.Errorf("invalid number of orders: %d", h.NumOrders)
	case h.NumSamples == 0 || h.NumSamples > 255:
		return fmt.Errorf("invalid number of samples: %d", h.NumSamples)
	case h.NumPatterns == 0 || h.NumPatterns > 128:
		return fmt.Errorf("invalid number of patterns: %d", h.NumPatterns)
	}
	return nil
}

func detectPTM(r *fileread.Reader) (song.Format, bool) {
	var h ptmFileHeader
	if !r.ReadStruct(leOrder, &h) || checkPTMHeader(&h) != nil {
		return song.FormatNone, false
	}
	if !r.CanRead(int(h.NumSamples) * ptmSampleHeaderSize) {
		return song.FormatNone, false
	}
	return song.FormatPTM, true
}

func loadPTM(p *parser) {
	p.startStage("header")
	var h ptmFileHeader
	p.readStruct(&h, "file header")
	if err := checkPTMHeader(&h); err != nil {
		p.fail("%v", err)
	}

	s := p.newSong(song.FormatPTM, int(h.NumChannels))
	s.Title = fileread.FixString(h.Name[:], fileread.MaybeNullTerminated)
	s.TrackerName = fmt.Sprintf("PolyTracker %d.%02x", h.VersionHi, h.VersionLo)
	s.Order().SetFromBytes(h.Orders[:h.NumOrders])
	for i := range s.Channels {
		s.Channels[i].Pan = uint16(h.ChannelPan[i]&0x0F)<<4 + 4
	}

	p.startStage("sample")
	type pendingData struct {
		smp    *song.Sample
		offset int
		sio    sampleIO
	}
	var pending []pendingData
	for i := 0; i < int(h.NumSamples); i++ {
		p.stageIndex = i
		var sh ptmSampleHeader
		p.readStruct(&sh, "sample header")
		smp := p.addSample()
		smp.Name = fileread.FixString(sh.Name[:], fileread.MaybeNullTerminated)
		smp.Filename = fileread.FixString(sh.Filename[:], fileread.MaybeNullTerminated)
		smp.Volume = uint16(min(sh.Volume, 64)) * 4
		smp.C5Speed = uint32(sh.C4Speed) * 2
		if sh.Flags&ptmSmpTypeMask != ptmSmpPCM {
			continue
		}

		sio := sampleIO{bits: 8, delta: true}
		length := int(min(sh.Length, song.MaxSampleLength))
		loopStart := int(min(sh.LoopStart, song.MaxSampleLength))
		loopEnd := int(min(sh.LoopEnd, song.MaxSampleLength))
		if sh.Flags&ptmSmp16Bit != 0 {
			sio = sampleIO{bits: 16, ptmDelta16: true}
			length /= 2
			loopStart /= 2
			loopEnd /= 2
		}
		smp.Length = length
		smp.LoopStart = loopStart
		smp.LoopEnd = loopEnd
		if sh.Flags&ptmSmpLoop != 0 {
			smp.Flags |= song.SampleLoop
		}
		if sh.Flags&ptmSmpPingPong != 0 {
			smp.Flags |= song.SamplePingPong
		}
		if length > 0 && sh.DataOffset != 0 {
			pending = append(pending, pendingData{smp: smp, offset: int(sh.DataOffset), sio: sio})
		}
	}

	if p.opts.HeaderOnly {
		return
	}

	p.startStage("sample data")
	for i, d := range pending {
		p.stageIndex = i
		if !p.r.Seek(d.offset) {
			p.truncated("sample data", 0, d.smp.Length*d.sio.frameBytes())
			d.smp.Length = 0
			continue
		}
		p.readSample(d.smp, d.sio, "sample data")
	}

	p.startStage("pattern")
	for i := 0; i < int(h.NumPatterns); i++ {
		p.stageIndex = i
		pattern := p.insertPattern(i, 64)
		offset := int(h.PatternOffsets[i]) << 4
		if offset == 0 {
			continue
		}
		if !p.r.Seek(offset) {
			p.truncatedAt("pattern data", offset)
			continue
		}
		p.readPTMPattern(pattern)
	}
}

func (p *parser) readPTMPattern(pattern *song.Pattern) {
	// No stored length: the data has to hold all 64 rows.
	r := p.newCellReader(p.r, -1)
	row := 0
	for row < 64 {
		b, ok := r.control(false)
		if !ok {
			return
		}
		if b == 0 {
			row++
			continue
		}
		ch := int(b & 0x1F)
		var c song.Command
		if b&0x20 != 0 {
			note, instr, ok := r.pair()
			if !ok {
				return
			}
			c.Instr = instr
			switch {
			case note == 254:
				c.Note = song.NoteCut
			case note == 0 || note > 120:
				c.Note = song.NoteNone
			default:
				c.Note = note
			}
		}
		if b&0x40 != 0 {
			effect, param, ok := r.pair()
			if !ok {
				return
			}
			convertPTMEffect(&c, effect, param)
		}
		if b&0x80 != 0 {
			vol, ok := r.byte()
			if !ok {
				return
			}
			c.VolCmd = song.VolVolume
			c.Vol = min(vol, 64)
		}
		if ch < pattern.Channels() {
			*pattern.Cell(row, ch) = c
		}
	}
}

// convertPTMEffect handles the MOD effects plus the PolyTracker extensions.
// Slides use the ScreamTracker rules: fine slides share the effect letters.
func convertPTMEffect(c *song.Command, effect, param uint8) {
	if effect < 0x10 {
		cmdconv.MOD(effect, param).Apply(c)
		return
	}
	switch effect {
	case 0x10:
		c.Effect, c.Param = song.EffectGlobalVolume, uint8(min(int(param)*2, 128))
	case 0x11:
		c.Effect, c.Param = song.EffectRetrig, param
	case 0x12:
		c.Effect, c.Param = song.EffectFineVibrato, param
	case 0x17:
		// Reverse playback; a parameter also sets a start offset.
		if param != 0 {
			c.VolCmd, c.Vol = song.VolOffset, param>>3
		}
		c.Effect, c.Param = song.EffectS3MCmdEx, 0x9F
	default:
		c.Effect, c.Param = song.EffectNone, 0
	}
}

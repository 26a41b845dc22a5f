package loaders

import (
	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

type s3mFileHeader struct {
	Name            [28]byte
	DOSEOF          uint8
	FileType        uint8
	Reserved1       uint16
	OrdNum          uint16
	SmpNum          uint16
	PatNum          uint16
	Flags           uint16
	CreatedWith     uint16
	FormatVersion   uint16 // 1 = signed samples, 2 = unsigned
	Magic           [4]byte
	GlobalVolume    uint8
	Speed           uint8
	Tempo           uint8
	MasterVolume    uint8 // bit 7 = stereo
	UltraClicks     uint8
	UsePanningTable uint8 // 0xFC = read the table after the pointers
	Reserved2       [8]byte
	Special         uint16
	Channels        [32]uint8
}

type s3mSampleHeader struct {
	Type      uint8
	Filename  [12]byte
	DataPtrHi uint8
	DataPtrLo uint16
	Length    uint32
	LoopStart uint32
	LoopEnd   uint32
	Volume    uint8
	Reserved1 uint8
	Pack      uint8
	Flags     uint8
	C5Speed   uint32
	Reserved2 [12]byte
	Name      [28]byte
	Magic     [4]byte
}

const (
	s3mFastSlides = 0x40

	s3mSmpLoop   = 0x01
	s3mSmpStereo = 0x02
	s3mSmp16Bit  = 0x04

	s3mChannelDisabled = 0x80
	s3mChannelUnused   = 0xFF
)

func detectS3M(r *fileread.Reader) (song.Format, bool) {
	var h s3mFileHeader
	if !r.ReadStruct(leOrder, &h) {
		return song.FormatNone, false
	}
	if string(h.Magic[:]) != "SCRM" || h.FileType != 16 {
		return song.FormatNone, false
	}
	return song.FormatS3M, true
}

func loadS3M(p *parser) {
	p.startStage("header")
	var h s3mFileHeader
	p.readStruct(&h, "file header")

	// Channels 0..15 are PCM channels (L1..L8, R1..R8), the rest AdLib.
	numChannels := 0
	for i, c := range h.Channels {
		if c != s3mChannelUnused && c&0x7F < 16 {
			numChannels = i + 1
		}
	}
	if numChannels == 0 {
		p.fail("no PCM channels")
	}

	s := p.newSong(song.FormatS3M, numChannels)
	s.Title = fileread.FixString(h.Name[:], fileread.MaybeNullTerminated)
	s.TrackerName = trackerS3M(h.CreatedWith)
	s.DefaultGlobalVolume = int(min(h.GlobalVolume, 64)) * 4
	if h.Speed != 0 && h.Speed != 0xFF {
		s.DefaultSpeed = int(h.Speed)
	}
	if h.Tempo >= 32 {
		s.DefaultTempo = int(h.Tempo)
	}
	s.PreAmp = int(max(h.MasterVolume&0x7F, 0x10))
	s.FastSlides = h.Flags&s3mFastSlides != 0 || h.CreatedWith == 0x1300
	stereo := h.MasterVolume&0x80 != 0

	for i := 0; i < numChannels; i++ {
		ch := &s.Channels[i]
		c := h.Channels[i]
		ch.Muted = c == s3mChannelUnused || c&s3mChannelDisabled != 0
		switch {
		case !stereo:
			ch.Pan = 128
		case c&0x7F < 8:
			ch.Pan = 64
		default:
			ch.Pan = 192
		}
	}

	p.startStage("orders")
	s.Order().SetFromBytes(p.read(int(h.OrdNum), "order list"))

	sampleOffsets := make([]int, h.SmpNum)
	for i := range sampleOffsets {
		sampleOffsets[i] = int(p.readWord("sample pointer")) * 16
	}
	patternOffsets := make([]int, h.PatNum)
	for i := range patternOffsets {
		patternOffsets[i] = int(p.readWord("pattern pointer")) * 16
	}
	if h.UsePanningTable == 0xFC {
		pans := p.read(32, "panning table")
		for i := 0; i < numChannels; i++ {
			if pans[i]&0x20 != 0 {
				s.Channels[i].Pan = uint16(pans[i]&0x0F)<<4 + 8
			}
		}
	}

	p.startStage("sample")
	type pendingData struct {
		smp    *song.Sample
		offset int
		sio    sampleIO
	}
	var pending []pendingData
	for i, offset := range sampleOffsets {
		p.stageIndex = i
		smp := p.addSample()
		if offset == 0 {
			continue
		}
		p.seek(offset, "sample header")
		var sh s3mSampleHeader
		p.readStruct(&sh, "sample header")
		smp.Name = fileread.FixString(sh.Name[:], fileread.MaybeNullTerminated)
		smp.Filename = fileread.FixString(sh.Filename[:], fileread.MaybeNullTerminated)
		if sh.Type != 1 {
			// Empty slot or an AdLib instrument.
			continue
		}
		smp.Volume = uint16(min(sh.Volume, 64)) * 4
		smp.C5Speed = sh.C5Speed
		if smp.C5Speed == 0 {
			smp.C5Speed = 8363
		}
		smp.Length = int(min(sh.Length, song.MaxSampleLength))
		if sh.Flags&s3mSmpLoop != 0 {
			smp.LoopStart = int(min(sh.LoopStart, song.MaxSampleLength))
			smp.LoopEnd = int(min(sh.LoopEnd, song.MaxSampleLength))
			smp.Flags |= song.SampleLoop
		}
		if sh.Pack != 0 {
			p.warn("sample %d: packed sample data is not supported", i+1)
			smp.Length = 0
			continue
		}
		sio := sampleIO{bits: 8, unsigned: h.FormatVersion == 2}
		if sh.Flags&s3mSmp16Bit != 0 {
			sio.bits = 16
		}
		if sh.Flags&s3mSmpStereo != 0 {
			// Stereo S3M samples store the left channel first;
			// only that half is kept.
			p.warn("sample %d: stereo sample, right channel dropped", i+1)
		}
		dataOffset := (int(sh.DataPtrHi)<<16 | int(sh.DataPtrLo)) * 16
		pending = append(pending, pendingData{smp: smp, offset: dataOffset, sio: sio})
	}

	if p.opts.HeaderOnly {
		return
	}

	p.startStage("pattern")
	for i, offset := range patternOffsets {
		p.stageIndex = i
		pattern := p.insertPattern(i, 64)
		if offset == 0 {
			continue
		}
		p.seek(offset, "pattern")
		length := int(p.readWord("packed pattern length"))
		p.readS3MPattern(pattern, length-2)
	}

	p.startStage("sample data")
	for i, d := range pending {
		p.stageIndex = i
		p.seek(min(d.offset, p.r.Len()), "sample data")
		p.readSample(d.smp, d.sio, "sample data")
	}
}

func (p *parser) readS3MPattern(pattern *song.Pattern, length int) {
	r := p.newCellReader(p.r.Chunk(max(length, 0)), max(length, 0))
	row := 0
	for row < 64 {
		b, ok := r.control(true)
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
			switch {
			case note == 0xFF:
				// Empty.
			case note == 0xFE:
				c.Note = song.NoteCut
			case note < 0xF0:
				c.Note = (note>>4)*12 + note&0x0F + 13
				if !song.IsNote(c.Note) {
					c.Note = song.NoteNone
				}
			}
			c.Instr = instr
		}
		if b&0x40 != 0 {
			vol, ok := r.byte()
			if !ok {
				return
			}
			cmdconv.S3MVolume(vol).Apply(&c)
		}
		if b&0x80 != 0 {
			effect, param, ok := r.pair()
			if !ok {
				return
			}
			cmdconv.S3M(effect, param).Apply(&c)
		}
		if ch < pattern.Channels() {
			*pattern.Cell(row, ch) = c
		}
	}
}

func trackerS3M(version uint16) string {
	switch version >> 12 {
	case 1:
		return "Scream Tracker 3"
	case 2:
		return "Imago Orpheus"
	case 3:
		return "Impulse Tracker"
	case 4:
		return "Schism Tracker"
	case 5:
		return "OpenMPT"
	}
	return ""
}

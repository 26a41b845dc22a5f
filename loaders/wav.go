package loaders

import (
	"strings"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/song"
)

const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE

	wavMaxPatterns    = 240
	wavRowsPerPattern = 64
	wavMaxRows        = 1024

	// wavTicksPerSecond is the tick rate at tempo 125.
	wavTicksPerSecond = 50
)

type wavFormat struct {
	Format        uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

type wavSampler struct {
	Manufacturer      uint32
	Product           uint32
	SamplePeriod      uint32
	MIDIUnityNote     uint32
	MIDIPitchFraction uint32
	SMPTEFormat       uint32
	SMPTEOffset       uint32
	NumLoops          uint32
	SamplerData       uint32
}

type wavLoop struct {
	ID        uint32
	Type      uint32 // 0 = forward, 1 = bidirectional
	Start     uint32
	End       uint32 // inclusive
	Fraction  uint32
	PlayCount uint32
}

// wavExtra is the ModPlug "xtra" chunk with sample defaults.
type wavExtra struct {
	Flags        uint32
	Pan          uint16
	Volume       uint16
	GlobalVolume uint16
	Reserved     uint16
	VibratoType  uint8
	VibratoSweep uint8
	VibratoDepth uint8
	VibratoRate  uint8
}

const wavExtraPanning = 0x20

func detectWAV(r *fileread.Reader) (song.Format, bool) {
	if !r.ReadMagic("RIFF") || !r.Skip(4) || !r.ReadMagic("WAVE") {
		return song.FormatNone, false
	}
	return song.FormatWAV, true
}

// readWAVChunks parses the chunk list. Some writers do not pad
// odd-sized chunks, so an unpadded reading is tried when the padded
// one misses the essential chunks.
func readWAVChunks(body []byte) fileread.ChunkList {
	chunks := fileread.New(body).ReadChunks(2)
	if chunks.Has("fmt ") && chunks.Has("data") {
		return chunks
	}
	if unpadded := fileread.New(body).ReadChunks(1); unpadded.Has("fmt ") && unpadded.Has("data") {
		return unpadded
	}
	return chunks
}

func loadWAV(p *parser) {
	p.startStage("header")
	p.skip(12, "RIFF header")
	chunks := readWAVChunks(p.r.Remaining())

	var fmtChunk wavFormat
	if !chunks.Get("fmt ").ReadStruct(leOrder, &fmtChunk) {
		p.fail("missing or short fmt chunk")
	}
	format := fmtChunk.Format
	if format == wavFormatExtensible {
		ext := chunks.Get("fmt ")
		if !ext.Seek(24) {
			p.fail("short extensible fmt chunk")
		}
		sub, ok := ext.ReadUint16LE()
		if !ok {
			p.fail("short extensible fmt chunk")
		}
		format = sub
	}

	channels := int(fmtChunk.Channels)
	spec := song.FormatWAV.Spec()
	switch {
	case channels == 0 || channels > spec.SamplesMax:
		p.fail("unsupported number of channels: %d", channels)
	case fmtChunk.SampleRate == 0:
		p.fail("invalid sample rate")
	case int(fmtChunk.BlockAlign) < channels:
		p.fail("invalid block align: %d", fmtChunk.BlockAlign)
	}
	width := int(fmtChunk.BlockAlign) / channels
	sio := sampleIO{bits: width * 8, unsigned: width == 1, channels: channels}
	switch {
	case format == wavFormatPCM && width >= 1 && width <= 4:
	case format == wavFormatFloat && width == 4:
		sio.float = true
	default:
		p.fail("unsupported sample format %#04x with %d bits", format, fmtChunk.BitsPerSample)
	}

	info := readWAVInfo(chunks)
	s := p.newSong(song.FormatWAV, channels)
	s.Title = info["INAM"]
	s.Artist = info["IART"]
	s.Message = info["ICMT"]
	s.TrackerName = info["ISFT"]
	s.DefaultSpeed = 1
	s.DefaultTempo = 125
	for i := range s.Channels {
		switch {
		case channels == 2 && i == 0:
			s.Channels[i].Pan = 0
		case channels == 2 && i == 1:
			s.Channels[i].Pan = 256
		}
	}

	data := chunks.Get("data")
	frames := min(data.Len()/int(fmtChunk.BlockAlign), song.MaxSampleLength)

	for ch := 0; ch < channels; ch++ {
		smp := p.addSample()
		smp.Name = s.Title
		smp.C5Speed = fmtChunk.SampleRate
		smp.Length = frames
		if channels == 2 {
			smp.Flags |= song.SamplePanning
			smp.Pan = s.Channels[ch].Pan
		}
	}

	p.startStage("smpl")
	p.readWAVLoops(chunks.Get("smpl"), frames, strings.HasPrefix(info["ISFT"], "Modplug Tracker"))
	p.startStage("xtra")
	p.readWAVExtra(chunks.Get("xtra"))

	p.startStage("pattern")
	totalRows := max(1, (frames*wavTicksPerSecond+int(fmtChunk.SampleRate)-1)/int(fmtChunk.SampleRate))
	rowsPerPattern := wavRowsPerPattern
	if (totalRows+rowsPerPattern-1)/rowsPerPattern > wavMaxPatterns {
		rowsPerPattern = min(wavMaxRows, (totalRows+wavMaxPatterns-1)/wavMaxPatterns)
	}
	numPatterns := (totalRows + rowsPerPattern - 1) / rowsPerPattern
	if numPatterns > wavMaxPatterns {
		p.warn("sample too long, playback stops after %d patterns", wavMaxPatterns)
		numPatterns = wavMaxPatterns
		totalRows = numPatterns * rowsPerPattern
	}
	seq := s.Order()
	for i := 0; i < numPatterns; i++ {
		rows := min(rowsPerPattern, totalRows-i*rowsPerPattern)
		pattern := p.insertPattern(i, rows)
		seq.Orders = append(seq.Orders, song.PatternIndex(i))
		if i == 0 {
			for ch := 0; ch < channels; ch++ {
				c := pattern.Cell(0, ch)
				c.Note = song.NoteMiddleC
				c.Instr = uint8(ch + 1)
			}
		}
	}

	if p.opts.HeaderOnly {
		return
	}

	p.startStage("sample data")
	want := frames * sio.frameBytes()
	if data.Len() < want {
		p.truncated("sample data", data.Len(), want)
	}
	raw := data.Bytes()
	for ch := 0; ch < channels; ch++ {
		p.stageIndex = ch
		smp := s.Samples[ch+1]
		if smp.Length == 0 {
			continue
		}
		p.allocSample(smp, smp.Length)
		if width > 1 {
			smp.Flags |= song.Sample16Bit
		}
		chio := sio
		chio.channel = ch
		decodePCM(smp.Data(), raw, chio)
	}
}

// readWAVInfo collects the LIST/INFO text fields.
func readWAVInfo(chunks fileread.ChunkList) map[string]string {
	info := map[string]string{}
	for _, list := range chunks.All("LIST") {
		if !list.ReadMagic("INFO") {
			continue
		}
		for _, c := range list.ReadChunks(2) {
			info[c.ID] = strings.TrimSpace(fileread.FixString(c.Data.Bytes(), fileread.MaybeNullTerminated))
		}
	}
	return info
}

// readWAVLoops applies the sampler chunk loops to every sample.
// File loop ends are inclusive, except in files from old ModPlug versions.
func (p *parser) readWAVLoops(r *fileread.Reader, frames int, exclusiveEnds bool) {
	if r.Len() == 0 {
		return
	}
	var h wavSampler
	if !r.ReadStruct(leOrder, &h) {
		p.warn("short smpl chunk")
		return
	}
	var loops []wavLoop
	for i := 0; i < int(min(h.NumLoops, 2)); i++ {
		var l wavLoop
		if !r.ReadStruct(leOrder, &l) {
			p.warn("short smpl chunk")
			break
		}
		loops = append(loops, l)
	}

	convert := func(l wavLoop) (start, end int, ok bool) {
		if l.End == 0 {
			return 0, 0, false
		}
		start, end = int(min(l.Start, uint32(frames))), int(min(l.End, uint32(frames)))
		if !exclusiveEnds && end < frames {
			end++
		}
		return start, end, start < end
	}

	for _, smp := range p.song.Samples[1:] {
		switch len(loops) {
		case 1:
			if start, end, ok := convert(loops[0]); ok {
				smp.LoopStart, smp.LoopEnd = start, end
				smp.Flags |= song.SampleLoop
				if loops[0].Type == 1 {
					smp.Flags |= song.SamplePingPong
				}
			}
		case 2:
			if start, end, ok := convert(loops[0]); ok {
				smp.SustainStart, smp.SustainEnd = start, end
				smp.Flags |= song.SampleSustain
				if loops[0].Type == 1 {
					smp.Flags |= song.SamplePingPongSustain
				}
			}
			if start, end, ok := convert(loops[1]); ok {
				smp.LoopStart, smp.LoopEnd = start, end
				smp.Flags |= song.SampleLoop
				if loops[1].Type == 1 {
					smp.Flags |= song.SamplePingPong
				}
			}
		}
	}
}

func (p *parser) readWAVExtra(r *fileread.Reader) {
	if r.Len() == 0 {
		return
	}
	var x wavExtra
	if !r.ReadStruct(leOrder, &x) {
		p.warn("short xtra chunk")
		return
	}
	for _, smp := range p.song.Samples[1:] {
		if x.Flags&wavExtraPanning != 0 {
			smp.Flags |= song.SamplePanning
			smp.Pan = min(x.Pan, 256)
		}
		smp.Volume = min(x.Volume, 256)
		smp.GlobalVolume = uint8(min(x.GlobalVolume, 64))
		smp.VibratoType = song.VibratoType(min(x.VibratoType, uint8(song.VibratoRandom)))
		smp.VibratoSweep = x.VibratoSweep
		smp.VibratoDepth = x.VibratoDepth
		smp.VibratoRate = x.VibratoRate
	}
}

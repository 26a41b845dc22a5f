package loaders

import (
	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

const (
	modMagicOffset = 1080
	modNumSamples  = 31
)

// modPeriods is the ProTracker period table (finetune 0) for five octaves.
// modPeriods[24] (period 428) is the C-5 of a sample tuned to 8363 Hz.
var modPeriods = [60]uint16{
	1712, 1616, 1525, 1440, 1357, 1281, 1209, 1141, 1077, 1017, 961, 907,
	856, 808, 762, 720, 678, 640, 604, 570, 538, 508, 480, 453,
	428, 404, 381, 360, 339, 320, 302, 285, 269, 254, 240, 226,
	214, 202, 190, 180, 170, 160, 151, 143, 135, 127, 120, 113,
	107, 101, 95, 90, 85, 80, 76, 71, 67, 64, 60, 57,
}

const modFirstNote = song.NoteMiddleC - 24

var modMagics = map[string]int{
	"M.K.": 4, "M!K!": 4, "M&K!": 4, "FLT4": 4, "4CHN": 4,
	"6CHN": 6,
	"8CHN": 8, "FLT8": 8, "CD81": 8, "OKTA": 8,
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// modChannels returns the channel count for a magic, 0 if unknown.
func modChannels(magic []byte) int {
	if n, ok := modMagics[string(magic)]; ok {
		return n
	}
	switch {
	case isDigit(magic[0]) && string(magic[1:]) == "CHN":
		// xCHN
		return int(magic[0] - '0')
	case isDigit(magic[0]) && isDigit(magic[1]) && (string(magic[2:]) == "CH" || string(magic[2:]) == "CN"):
		// xxCH
		return int(magic[0]-'0')*10 + int(magic[1]-'0')
	}
	return 0
}

// modPeriodToNote finds the note closest to an Amiga period.
func modPeriodToNote(period uint16) uint8 {
	if period == 0 {
		return song.NoteNone
	}
	best := 0
	bestDiff := 1 << 16
	for i, v := range modPeriods {
		d := int(v) - int(period)
		if d < 0 {
			d = -d
		}
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return modFirstNote + uint8(best)
}

func detectMOD(r *fileread.Reader) (song.Format, bool) {
	if !r.Seek(modMagicOffset) {
		return song.FormatNone, false
	}
	magic, ok := r.ReadBytes(4)
	if !ok {
		return song.FormatNone, false
	}
	n := modChannels(magic)
	if n < 1 || n > 32 {
		return song.FormatNone, false
	}
	return song.FormatMOD, true
}

func loadMOD(p *parser) {
	p.startStage("header")
	p.seek(modMagicOffset, "magic")
	channels := modChannels(p.read(4, "magic"))
	p.r.Rewind()

	s := p.newSong(song.FormatMOD, channels)
	s.Title = p.readString(20, "song name")
	s.TrackerName = "ProTracker"

	p.startStage("sample header")
	for i := 0; i < modNumSamples; i++ {
		p.stageIndex = i
		smp := p.addSample()
		smp.Name = p.readString(22, "sample name")
		smp.Length = int(p.readWordBE("sample length")) * 2
		fineTune := p.readByte("finetune")
		smp.FineTune = (int8(fineTune<<4) >> 4) * 16
		smp.Volume = uint16(min(p.readByte("volume"), 64)) * 4
		loopStart := int(p.readWordBE("loop start")) * 2
		loopLength := int(p.readWordBE("loop length")) * 2
		if loopLength > 2 {
			smp.LoopStart = loopStart
			smp.LoopEnd = loopStart + loopLength
			smp.Flags |= song.SampleLoop
		}
	}

	p.startStage("orders")
	songLength := int(p.readByte("song length"))
	restart := int(p.readByte("restart position"))
	orders := p.read(128, "order list")
	p.skip(4, "magic")

	numPatterns := 0
	for _, o := range orders {
		numPatterns = max(numPatterns, int(o)+1)
	}
	songLength = max(1, min(songLength, 128))
	seq := s.Order()
	for _, o := range orders[:songLength] {
		seq.Orders = append(seq.Orders, song.PatternIndex(o))
	}
	if restart < songLength {
		seq.Restart = restart
	}

	// Amiga LRRL panning.
	for i := range s.Channels {
		if i%4 == 1 || i%4 == 2 {
			s.Channels[i].Pan = 192
		} else {
			s.Channels[i].Pan = 64
		}
	}

	if p.opts.HeaderOnly {
		return
	}

	p.startStage("pattern")
	rowBytes := channels * 4
	for pat := 0; pat < numPatterns; pat++ {
		p.stageIndex = pat
		pattern := p.insertPattern(pat, 64)
		data := p.readAvailable(64*rowBytes, "pattern data")
		for i := 0; i+4 <= len(data); i += 4 {
			cell := i / 4
			p.convertMODCell(pattern.Cell(cell/channels, cell%channels), data[i:i+4])
		}
	}

	p.startStage("sample data")
	for i := 1; i <= s.NumSamples(); i++ {
		p.stageIndex = i - 1
		p.readSample(s.Samples[i], sampleIO{bits: 8}, "sample data")
	}
}

func (p *parser) convertMODCell(c *song.Command, b []byte) {
	period := uint16(b[0]&0x0F)<<8 | uint16(b[1])
	c.Note = modPeriodToNote(period)
	c.Instr = b[0]&0xF0 | b[2]>>4
	cmdconv.MOD(b[2]&0x0F, b[3]).Apply(c)
}

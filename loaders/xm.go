package loaders

import (
	"strings"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/internal/cmdconv"
	"github.com/ksnyder9801/modplug/song"
)

const xmIDText = "extended module: "

// xmNoteOffset moves XM notes (C-0 = 1) so that XM C-4, the note that
// plays a sample at its own rate, becomes C-5.
const xmNoteOffset = 12

// xmSample is an XM sample header; the data follows all headers
// of an instrument.
type xmSample struct {
	smp      *song.Sample
	byteLen  int
	is16bits bool
	adpcm    bool
}

func detectXM(r *fileread.Reader) (song.Format, bool) {
	id, ok := r.ReadBytes(len(xmIDText))
	if !ok || !strings.EqualFold(string(id), xmIDText) {
		return song.FormatNone, false
	}
	if !r.Skip(20) {
		return song.FormatNone, false
	}
	if b, ok := r.ReadUint8(); !ok || b != 0x1a {
		return song.FormatNone, false
	}
	return song.FormatXM, true
}

func loadXM(p *parser) {
	p.startStage("header")
	numPatterns, numInstruments := p.parseXMHeader()
	if p.opts.HeaderOnly {
		return
	}

	p.startStage("pattern")
	for i := 0; i < numPatterns; i++ {
		p.stageIndex = i
		p.parseXMPattern(i)
	}

	p.startStage("instrument")
	for i := 0; i < numInstruments; i++ {
		p.stageIndex = i
		if p.r.BytesLeft() == 0 {
			p.truncated("instruments", i, numInstruments)
			break
		}
		p.parseXMInstrument()
	}
}

func (p *parser) parseXMHeader() (numPatterns, numInstruments int) {
	p.skip(len(xmIDText), "id text")
	name := p.readString(20, "module name")
	if b := p.readByte("magic byte"); b != 0x1a {
		p.fail("expected 0x1a, found 0x%0x", b)
	}
	trackerName := p.readString(20, "tracker name")
	p.skip(2, "version")

	headerStart := p.r.Pos()
	headerSize := int(p.readDword("header size"))
	if headerSize < 20 || !p.r.CanRead(headerSize-4) {
		p.fail("invalid header size: %d", headerSize)
	}

	songLength := int(p.readWord("song length"))
	if songLength <= 0 || songLength > 256 {
		p.fail("invalid song length value: %d", songLength)
	}
	restart := int(p.readWord("restart position"))
	numChannels := int(p.readWord("number of channels"))
	if numChannels <= 0 || numChannels > 32 {
		p.fail("invalid number of channels: %d", numChannels)
	}
	numPatterns = int(p.readWord("number of patterns"))
	if numPatterns > 256 {
		p.fail("invalid number of patterns: %d", numPatterns)
	}
	numInstruments = int(p.readWord("number of instruments"))
	if numInstruments > 128 {
		p.fail("invalid number of instruments: %d", numInstruments)
	}
	flags := p.readWord("flags")
	speed := int(p.readWord("default tempo"))
	bpm := int(p.readWord("default bpm"))
	orders := p.read(songLength, "pattern order table")

	s := p.newSong(song.FormatXM, numChannels)
	s.Title = name
	s.TrackerName = trackerName
	s.LinearSlides = flags&1 != 0
	if speed > 0 && speed < 32 {
		s.DefaultSpeed = speed
	}
	if bpm >= 32 && bpm <= 999 {
		s.DefaultTempo = bpm
	}
	seq := s.Order()
	for _, o := range orders {
		seq.Orders = append(seq.Orders, song.PatternIndex(o))
	}
	if restart < songLength {
		seq.Restart = restart
	}

	p.seek(headerStart+headerSize, "header end")
	return numPatterns, numInstruments
}

func (p *parser) parseXMPattern(index int) {
	start := p.r.Pos()
	patternHeaderLength := int(p.readDword("pattern header length"))
	if patternHeaderLength < 9 {
		p.fail("invalid pattern header length: %d", patternHeaderLength)
	}
	p.skip(1, "packing type")
	numRows := int(p.readWord("number of rows"))
	if numRows <= 0 || numRows > 256 {
		p.fail("invalid number of rows: %d", numRows)
	}
	packedPatternDataSize := int(p.readWord("packed pattern data size"))

	// Respect the stated header size; it is usually 9.
	p.seek(start+patternHeaderLength, "pattern data")

	if packedPatternDataSize == 0 {
		// An empty pattern is 64 empty rows, whatever the header says.
		p.insertPattern(index, 64)
		return
	}

	pattern := p.insertPattern(index, numRows)
	r := p.newCellReader(p.r.Chunk(packedPatternDataSize), packedPatternDataSize)
	channels := pattern.Channels()

	for row := 0; row < numRows; row++ {
		for ch := 0; ch < channels; ch++ {
			b, ok := r.control(true)
			if !ok {
				return
			}
			var fields [5]uint8 // note, instrument, volume, effect type, effect parameter
			var present uint8
			if b&0b10000000 != 0 {
				// When MSB is set, an alternative (compact) scheme is used for this note.
				// Some bytes may be missing (they default to 0).
				present = b & 0b11111
			} else {
				// The first byte was a note.
				present = 0b11110
				fields[0] = b
			}
			for i := range fields {
				if present&(1<<i) == 0 {
					continue
				}
				if fields[i], ok = r.byte(); !ok {
					return
				}
			}
			note, instrument, volume, effectType, effectParameter := fields[0], fields[1], fields[2], fields[3], fields[4]

			c := pattern.Cell(row, ch)
			switch {
			case note == 97:
				c.Note = song.NoteKeyOff
			case note >= 1 && note <= 96:
				c.Note = note + xmNoteOffset
			}
			c.Instr = instrument
			cmdconv.XMVolume(volume).Apply(c)
			cmdconv.XM(effectType, effectParameter).Apply(c)
		}
	}
}

func (p *parser) parseXMInstrument() {
	start := p.r.Pos()
	instrumentHeaderSize := int(p.readDword("instrument header size"))
	if instrumentHeaderSize < 29 {
		// Some writers store a shorter header for empty instruments.
		instrumentHeaderSize = 29
	}
	end := start + instrumentHeaderSize

	_, ins, err := p.song.AddInstrument()
	if err != nil {
		p.failErr(err, "instrument")
	}
	ins.Name = p.readString(22, "instrument name")
	p.skip(1, "instrument type")
	numSamples := int(p.readWord("number of samples"))
	if numSamples == 0 {
		p.seek(min(end, p.r.Len()), "instrument end")
		return
	}

	p.skip(4, "instrument sample header size")
	keymap := p.read(96, "instrument samples keymap assignments")

	var volumePoints, panningPoints [12]song.EnvelopeNode
	for i := range volumePoints {
		volumePoints[i].Tick = p.readWord("envelope volume point x")
		volumePoints[i].Value = uint8(min(p.readWord("envelope volume point y"), 64))
	}
	for i := range panningPoints {
		panningPoints[i].Tick = p.readWord("envelope panning point x")
		panningPoints[i].Value = uint8(min(p.readWord("envelope panning point y"), 64))
	}
	numVolumePoints := min(int(p.readByte("number of volume points")), 12)
	numPanningPoints := min(int(p.readByte("number of panning points")), 12)

	volumeSustain := p.readByte("volume sustain point")
	volumeLoopStart := p.readByte("volume loop start point")
	volumeLoopEnd := p.readByte("volume loop end point")
	panningSustain := p.readByte("panning sustain point")
	panningLoopStart := p.readByte("panning loop start point")
	panningLoopEnd := p.readByte("panning loop end point")
	volumeFlags := p.readByte("volume type")
	panningFlags := p.readByte("panning type")

	vibratoType := p.readByte("vibrato type")
	vibratoSweep := p.readByte("vibrato sweep")
	vibratoDepth := p.readByte("vibrato depth")
	vibratoRate := p.readByte("vibrato rate")
	ins.FadeOut = uint32(p.readWord("volume fadeout")) * 2

	ins.VolumeEnvelope = xmEnvelope(volumePoints[:numVolumePoints], volumeFlags, volumeSustain, volumeLoopStart, volumeLoopEnd)
	ins.PanningEnvelope = xmEnvelope(panningPoints[:numPanningPoints], panningFlags, panningSustain, panningLoopStart, panningLoopEnd)

	if p.r.Pos() > end {
		p.fail("consumed %d extra bytes", p.r.Pos()-end)
	}
	p.seek(end, "instrument end")

	samples := make([]xmSample, numSamples)
	p.startSubStage("sample")
	for i := range samples {
		p.subStageIndex = i
		samples[i] = p.parseXMSampleHeader()
		smp := samples[i].smp
		smp.VibratoType = xmVibratoType(vibratoType)
		smp.VibratoSweep = vibratoSweep
		smp.VibratoDepth = min(vibratoDepth, 15)
		smp.VibratoRate = min(vibratoRate, 63)
	}

	// Map the local sample numbers to song samples. Notes outside
	// the 96 XM notes repeat the nearest mapping.
	first := p.song.NumSamples() - numSamples + 1
	for note := range ins.Keyboard {
		k := max(0, min(note-xmNoteOffset, 95))
		if local := int(keymap[k]); local < numSamples {
			ins.Keyboard[note] = song.SampleIndex(first + local)
		}
	}

	p.startSubStage("sampledata")
	for i := range samples {
		p.subStageIndex = i
		p.readXMSampleData(&samples[i])
	}
}

func (p *parser) parseXMSampleHeader() xmSample {
	var x xmSample
	x.smp = p.addSample()
	smp := x.smp

	x.byteLen = int(min(p.readDword("sample length"), song.MaxSampleLength))
	loopStart := int(min(p.readDword("sample loop start"), song.MaxSampleLength))
	loopLength := int(min(p.readDword("sample loop length"), song.MaxSampleLength))
	smp.Volume = uint16(min(p.readByte("sample volume"), 64)) * 4
	smp.FineTune = int8(p.readByte("sample finetune"))
	typeFlags := p.readByte("sample type")
	smp.Pan = uint16(p.readByte("sample panning"))
	smp.Flags |= song.SamplePanning
	smp.RelativeTone = int8(p.readByte("sample relative note number"))

	switch format := p.readByte("sample encoding"); format {
	case 0:
	case 0xAD:
		x.adpcm = true
	default:
		p.fail("unknown sample encoding scheme (%#02x)", format)
	}
	smp.Name = p.readString(22, "sample name")

	x.is16bits = typeFlags&(1<<4) != 0
	frames := x.byteLen
	if x.is16bits {
		frames /= 2
		loopStart /= 2
		loopLength /= 2
	}
	smp.Length = frames
	switch typeFlags & 0b11 {
	case 1:
		smp.Flags |= song.SampleLoop
	case 2, 3:
		smp.Flags |= song.SampleLoop | song.SamplePingPong
	}
	smp.LoopStart = loopStart
	smp.LoopEnd = loopStart + loopLength
	return x
}

func (p *parser) readXMSampleData(x *xmSample) {
	if x.byteLen == 0 {
		return
	}
	smp := x.smp
	if x.adpcm {
		// ModPlug ADPCM: a 16-entry delta table, then two 4-bit indices per byte.
		table := p.read(16, "adpcm table")
		packed := p.readAvailable((smp.Length+1)/2, "sample data")
		p.allocSample(smp, smp.Length)
		decodeADPCM(smp.Data(), table, packed)
		return
	}
	sio := sampleIO{bits: 8, delta: true}
	if x.is16bits {
		sio.bits = 16
	}
	p.readSample(smp, sio, "sample data")
	if x.byteLen%2 != 0 && x.is16bits && p.r.BytesLeft() > 0 {
		p.skip(1, "sample padding")
	}
}

func decodeADPCM(dst []int16, table, packed []byte) {
	var acc int8
	for i := range dst {
		if i/2 >= len(packed) {
			return
		}
		nibble := packed[i/2] >> (4 * uint(i%2)) & 0x0F
		acc += int8(table[nibble])
		dst[i] = int16(acc) << 8
	}
}

func xmEnvelope(points []song.EnvelopeNode, flags, sustain, loopStart, loopEnd uint8) song.Envelope {
	env := song.Envelope{
		Nodes:        append([]song.EnvelopeNode(nil), points...),
		LoopStart:    loopStart,
		LoopEnd:      loopEnd,
		SustainStart: sustain,
		SustainEnd:   sustain,
		ReleaseNode:  song.NoReleaseNode,
	}
	if flags&(1<<0) != 0 {
		env.Flags |= song.EnvelopeEnabled
	}
	if flags&(1<<1) != 0 {
		env.Flags |= song.EnvelopeSustain
	}
	if flags&(1<<2) != 0 {
		env.Flags |= song.EnvelopeLoop
	}
	return env
}

func xmVibratoType(v uint8) song.VibratoType {
	switch v {
	case 1:
		return song.VibratoSquare
	case 2:
		return song.VibratoRampDown
	case 3:
		return song.VibratoRampUp
	}
	return song.VibratoSine
}

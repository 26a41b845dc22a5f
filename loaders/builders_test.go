package loaders

import (
	"bytes"
	"encoding/binary"
)

// Builders for minimal but complete module files.

func fixed(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func writeLE(b *bytes.Buffer, values ...any) {
	for _, v := range values {
		if err := binary.Write(b, binary.LittleEndian, v); err != nil {
			panic(err)
		}
	}
}

func writeBE(b *bytes.Buffer, values ...any) {
	for _, v := range values {
		if err := binary.Write(b, binary.BigEndian, v); err != nil {
			panic(err)
		}
	}
}

func padTo(b *bytes.Buffer, n int) {
	for b.Len() < n {
		b.WriteByte(0)
	}
}

// buildMOD returns a 4-channel M.K. file with one 8-byte sample
// and one pattern that plays C-5 with C40 on the first row.
func buildMOD() []byte {
	var b bytes.Buffer
	b.Write(fixed("test mod", 20))
	for i := 0; i < modNumSamples; i++ {
		b.Write(fixed("", 22))
		if i == 0 {
			writeBE(&b, uint16(4), uint8(0), uint8(64), uint16(0), uint16(1))
		} else {
			writeBE(&b, uint16(0), uint8(0), uint8(0), uint16(0), uint16(1))
		}
	}
	b.WriteByte(1)   // song length
	b.WriteByte(127) // restart
	b.Write(make([]byte, 128))
	b.WriteString("M.K.")

	pattern := make([]byte, 64*4*4)
	copy(pattern, []byte{0x01, 0xAC, 0x1C, 0x40}) // period 428, sample 1, C40
	b.Write(pattern)
	b.Write([]byte{0, 10, 20, 30, 40, 30, 20, 10})
	return b.Bytes()
}

// buildS3M returns a 4-channel file with one unsigned sample and one
// pattern. Sample data is unsigned: 0x80 is silence.
func buildS3M() []byte {
	h := s3mFileHeader{
		DOSEOF:        0x1A,
		FileType:      16,
		OrdNum:        2,
		SmpNum:        1,
		PatNum:        1,
		CreatedWith:   0x1320,
		FormatVersion: 2,
		GlobalVolume:  64,
		Speed:         6,
		Tempo:         125,
		MasterVolume:  0x80 | 48,
	}
	copy(h.Name[:], "test s3m")
	copy(h.Magic[:], "SCRM")
	for i := range h.Channels {
		h.Channels[i] = s3mChannelUnused
	}
	h.Channels[0], h.Channels[1], h.Channels[2], h.Channels[3] = 0, 8, 1, 9

	var b bytes.Buffer
	writeLE(&b, h)
	b.Write([]byte{0, 0xFF})    // orders
	writeLE(&b, uint16(112/16)) // sample parapointer
	writeLE(&b, uint16(192/16)) // pattern parapointer
	padTo(&b, 112)

	sh := s3mSampleHeader{
		Type:      1,
		DataPtrLo: 288 / 16,
		Length:    4,
		Volume:    64,
		C5Speed:   8363,
	}
	copy(sh.Name[:], "smp1")
	copy(sh.Magic[:], "SCRS")
	writeLE(&b, sh)

	var pat bytes.Buffer
	pat.Write([]byte{0xE0, 0x40, 1, 32, 1, 6}) // channel 0: C-5, sample 1, v32, A06
	pat.WriteByte(0)
	pat.Write(make([]byte, 63))
	writeLE(&b, uint16(pat.Len()+2))
	b.Write(pat.Bytes())
	padTo(&b, 288)

	b.Write([]byte{0x80, 0xFF, 0x00, 0x80})
	return b.Bytes()
}

// buildXM returns a 2-channel file with a 4-row pattern and one
// instrument holding one 16-bit sample.
func buildXM() []byte {
	var b bytes.Buffer
	b.WriteString("Extended Module: ")
	b.Write(fixed("test xm", 20))
	b.WriteByte(0x1A)
	b.Write(fixed("FastTracker v2.00", 20))
	writeLE(&b, uint16(0x0104), uint32(276))
	writeLE(&b, uint16(1), uint16(0), uint16(2), uint16(1), uint16(1), uint16(1), uint16(6), uint16(125))
	b.Write(make([]byte, 256))

	// Pattern.
	data := []byte{
		49, 1, 0x50, 0x10, 0x20, 0x80, // C-4, sample 1, v64, G20 | empty
		0x80, 0x80,
		0x80, 0x80,
		0x80, 0x80,
	}
	writeLE(&b, uint32(9), uint8(0), uint16(4), uint16(len(data)))
	b.Write(data)

	// Instrument.
	writeLE(&b, uint32(263))
	b.Write(fixed("instr", 22))
	writeLE(&b, uint8(0), uint16(1), uint32(40))
	b.Write(make([]byte, 96)) // keymap
	envelope := make([]uint16, 24)
	envelope[0], envelope[1], envelope[2], envelope[3] = 0, 64, 10, 0
	writeLE(&b, envelope)
	writeLE(&b, make([]uint16, 24))
	writeLE(&b, uint8(2), uint8(0))                     // points
	b.Write(make([]byte, 6))                            // sustain and loop points
	writeLE(&b, uint8(1), uint8(0))                     // envelope types
	writeLE(&b, uint8(0), uint8(0), uint8(0), uint8(0)) // vibrato
	writeLE(&b, uint16(0x100))                          // fadeout
	b.Write(make([]byte, 22))

	// Sample header and delta-coded data.
	writeLE(&b, uint32(8), uint32(0), uint32(0), uint8(48), int8(-16), uint8(0x10), uint8(0x80), int8(0), uint8(0))
	b.Write(fixed("sample", 22))
	writeLE(&b, []int16{100, 200, -500, 200})
	return b.Bytes()
}

// itBitWriter packs values LSB first like the IT sample compressor.
type itBitWriter struct {
	data []byte
	bit  int
}

func (w *itBitWriter) write(v uint32, n int) {
	for i := 0; i < n; i++ {
		if w.bit%8 == 0 {
			w.data = append(w.data, 0)
		}
		w.data[len(w.data)-1] |= byte(v>>i&1) << (w.bit % 8)
		w.bit++
	}
}

// itCompressedBlock encodes the deltas 10, 5, -3 at width 9, switches
// to width 4 and encodes 3, -2. The decoded 8-bit values are
// 10, 15, 12, 15, 13.
func itCompressedBlock() []byte {
	var w itBitWriter
	w.write(10, 9)
	w.write(5, 9)
	w.write(0xFD, 9)
	w.write(0x100|3, 9) // width 4
	w.write(3, 4)
	w.write(0xE, 4)
	var b bytes.Buffer
	writeLE(&b, uint16(len(w.data)))
	b.Write(w.data)
	return b.Bytes()
}

// buildIT returns a sample-mode file using channel 3 only, with one
// compressed 8-bit sample.
func buildIT() []byte {
	h := itFileHeader{
		OrdNum:       2,
		SmpNum:       1,
		PatNum:       1,
		CreatedWith:  0x0214,
		Compatible:   0x0214,
		Flags:        itFlagStereo | itFlagLinear,
		GlobalVolume: 128,
		MixVolume:    48,
		Speed:        6,
		Tempo:        125,
	}
	copy(h.Magic[:], "IMPM")
	copy(h.Name[:], "test it")
	for i := range h.ChannelPan {
		h.ChannelPan[i] = 32
		h.ChannelVol[i] = 64
	}
	h.ChannelPan[1] = 100

	var b bytes.Buffer
	writeLE(&b, h)
	b.Write([]byte{0, 255})
	writeLE(&b, uint32(202), uint32(282))

	pattern := []byte{
		0x83, 0x0F, 60, 1, 64, 'T' - 64, 0x80, 0, // row 0
		0x83, 0x30, 0,                            // row 1 repeats the note and the sample
		0, 0, 0, 0, 0, 0,
	}
	dataOffset := 282 + 8 + len(pattern)

	sh := itSampleHeader{
		GlobalVolume: 64,
		Flags:        itSmpData | itSmpCompressed,
		Volume:       64,
		Convert:      itCvtSigned,
		DefaultPan:   0x80 | 32,
		Length:       5,
		C5Speed:      22050,
		DataPointer:  uint32(dataOffset),
	}
	copy(sh.Magic[:], "IMPS")
	copy(sh.Name[:], "it sample")
	writeLE(&b, sh)

	writeLE(&b, uint16(len(pattern)), uint16(8), uint32(0))
	b.Write(pattern)
	b.Write(itCompressedBlock())
	return b.Bytes()
}

// buildPTM returns a 4-channel file with one 8-bit sample.
func buildPTM() []byte {
	h := ptmFileHeader{
		DOSEOF:      26,
		VersionLo:   0x03,
		VersionHi:   0x02,
		NumOrders:   1,
		NumSamples:  1,
		NumPatterns: 1,
		NumChannels: 4,
	}
	copy(h.Name[:], "test ptm")
	copy(h.Magic[:], "PTMF")
	copy(h.ChannelPan[:], []uint8{0, 15, 7, 8})
	h.PatternOffsets[0] = 688 / 16

	pattern := []byte{
		0xE0, 61, 1, 0x17, 0x10, 48, // note, sample, reverse + offset, volume
		0,
		0x41, 0x17, 0x10, // reverse + offset
		0x42, 0x10, 0x20, // global volume
		0,
	}
	pattern = append(pattern, make([]byte, 62)...)
	dataOffset := 688 + len(pattern)

	sh := ptmSampleHeader{
		Flags:      ptmSmpPCM,
		Volume:     64,
		C4Speed:    8363,
		DataOffset: uint32(dataOffset),
		Length:     4,
	}
	copy(sh.Name[:], "ptm sample")
	copy(sh.Magic[:], "PTMS")

	var b bytes.Buffer
	writeLE(&b, h, sh)
	b.Write(pattern)
	writeLE(&b, []int8{10, 10, -30, 10})
	return b.Bytes()
}

// buildPTMPatternLast returns a 4-channel file whose only pattern
// follows the sample data, with one cell on row 10. cellEnd is the
// offset just past that cell.
func buildPTMPatternLast() (data []byte, cellEnd int) {
	const patternOffset = 704
	h := ptmFileHeader{
		DOSEOF:      26,
		VersionLo:   0x03,
		VersionHi:   0x02,
		NumOrders:   1,
		NumSamples:  1,
		NumPatterns: 1,
		NumChannels: 4,
	}
	copy(h.Magic[:], "PTMF")
	h.PatternOffsets[0] = patternOffset / 16

	sh := ptmSampleHeader{
		Flags:      ptmSmpPCM,
		Volume:     64,
		C4Speed:    8363,
		DataOffset: 688,
		Length:     4,
	}
	copy(sh.Magic[:], "PTMS")

	var b bytes.Buffer
	writeLE(&b, h, sh)
	writeLE(&b, []int8{10, 10, -30, 10})
	b.Write(make([]byte, patternOffset-b.Len()))
	b.Write(make([]byte, 10))                    // rows 0-9
	b.Write([]byte{0xE0, 61, 1, 0x0A, 0x10, 48}) // note, sample, volume slide, volume
	cellEnd = b.Len()
	b.WriteByte(0)
	b.Write(make([]byte, 53)) // rows 11-63
	return b.Bytes(), cellEnd
}

// buildGDM returns a 3-channel S3M-origin file with effects that
// exercise the translation rules.
func buildGDM() []byte {
	const (
		orderOffset   = 157
		sampleHeaders = orderOffset + 1
		sampleData    = sampleHeaders + 62
		patterns      = sampleData + 4
	)
	var pat bytes.Buffer
	pat.Write([]byte{0x60, 0x41, 1, 0x0C | gdmEffectMore, 40, 0x15, 1}) // C-5, volume 40, unsupported
	pat.Write([]byte{0x41, 0x15 | gdmEffectMore, 2, 0x1E, 0x01})        // unsupported, surround
	pat.Write([]byte{0x42, 0x1E, 0x84})                                 // 4-bit panning
	pat.WriteByte(0)
	pat.Write(make([]byte, 63))
	message := "hello\r\nworld"
	messageOffset := patterns + 2 + pat.Len()

	h := gdmFileHeader{
		DOSEOF:          [3]byte{13, 10, 26},
		FormatMajor:     1,
		MasterVolume:    64,
		Tempo:           6,
		BPM:             125,
		OriginalFormat:  3,
		OrderOffset:     orderOffset,
		PatternOffset:   patterns,
		SampleHdrOffset: sampleHeaders,
		SampleOffset:    sampleData,
		MessageOffset:   uint32(messageOffset),
		MessageLength:   uint32(len(message)),
	}
	copy(h.Magic[:], "GDM\xFE")
	copy(h.Magic2[:], "GMFS")
	copy(h.Title[:], "test gdm")
	copy(h.Musician[:], "someone")
	for i := range h.PanMap {
		h.PanMap[i] = 0xFF
	}
	h.PanMap[0], h.PanMap[1], h.PanMap[2] = 0, 15, 16

	sh := gdmSampleHeader{
		Length:  4,
		Flags:   gdmSmpVolume,
		C4Hertz: 8363,
		Volume:  32,
	}
	copy(sh.Name[:], "gdm sample")

	var b bytes.Buffer
	writeLE(&b, h)
	b.WriteByte(0) // order list
	writeLE(&b, sh)
	b.Write([]byte{0x80, 0x90, 0x70, 0x80})
	writeLE(&b, uint16(pat.Len()+2))
	b.Write(pat.Bytes())
	b.WriteString(message)
	return b.Bytes()
}

type riffChunk struct {
	id      string
	payload []byte
}

// buildRIFF writes a WAVE file. Odd payloads are padded unless pad is false.
func buildRIFF(pad bool, chunks ...riffChunk) []byte {
	var body bytes.Buffer
	body.WriteString("WAVE")
	for _, c := range chunks {
		body.WriteString(c.id)
		writeLE(&body, uint32(len(c.payload)))
		body.Write(c.payload)
		if pad && len(c.payload)%2 != 0 {
			body.WriteByte(0)
		}
	}
	var b bytes.Buffer
	b.WriteString("RIFF")
	writeLE(&b, uint32(body.Len()))
	b.Write(body.Bytes())
	return b.Bytes()
}

func wavFmtChunk(format, channels uint16, rate uint32, bits uint16) riffChunk {
	var b bytes.Buffer
	align := channels * bits / 8
	writeLE(&b, wavFormat{
		Format:        format,
		Channels:      channels,
		SampleRate:    rate,
		ByteRate:      rate * uint32(align),
		BlockAlign:    align,
		BitsPerSample: bits,
	})
	return riffChunk{"fmt ", b.Bytes()}
}

func wavSmplChunk(loops ...wavLoop) riffChunk {
	var b bytes.Buffer
	writeLE(&b, wavSampler{NumLoops: uint32(len(loops))})
	for _, l := range loops {
		writeLE(&b, l)
	}
	return riffChunk{"smpl", b.Bytes()}
}

func wavInfoChunk(fields ...string) riffChunk {
	var b bytes.Buffer
	b.WriteString("INFO")
	for i := 0; i+1 < len(fields); i += 2 {
		v := append([]byte(fields[i+1]), 0)
		b.WriteString(fields[i])
		writeLE(&b, uint32(len(v)))
		b.Write(v)
		if len(v)%2 != 0 {
			b.WriteByte(0)
		}
	}
	return riffChunk{"LIST", b.Bytes()}
}

// buildWAV returns a stereo 16-bit file with four frames and a loop
// over frames 1..2 (inclusive).
func buildWAV(software string) []byte {
	var data bytes.Buffer
	writeLE(&data, []int16{100, -100, 200, -200, 300, -300, 400, -400})
	info := []string{"INAM", "wave"}
	if software != "" {
		info = append(info, "ISFT", software)
	}
	return buildRIFF(true,
		wavFmtChunk(wavFormatPCM, 2, 44100, 16),
		wavInfoChunk(info...),
		wavSmplChunk(wavLoop{Start: 1, End: 2}),
		riffChunk{"data", data.Bytes()},
	)
}

package loaders

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ksnyder9801/modplug/song"
)

var testFiles = []struct {
	name   string
	data   func() []byte
	format song.Format
}{
	{"mod", buildMOD, song.FormatMOD},
	{"s3m", buildS3M, song.FormatS3M},
	{"xm", buildXM, song.FormatXM},
	{"it", buildIT, song.FormatIT},
	{"ptm", buildPTM, song.FormatPTM},
	{"gdm", buildGDM, song.FormatS3M},
	{"wav", func() []byte { return buildWAV("") }, song.FormatWAV},
}

func mustLoad(t *testing.T, data []byte, opts Options) *song.Song {
	t.Helper()
	s, err := Load(data, opts)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestDetect(t *testing.T) {
	for _, test := range testFiles {
		f, err := Detect(test.data())
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if f != test.format {
			t.Fatalf("%s: detect gives %v, want %v", test.name, f, test.format)
		}
	}

	if _, err := Detect([]byte("definitely not a module")); !errors.Is(err, ErrNotThisFormat) {
		t.Fatalf("garbage: got %v", err)
	}
	if _, err := Load(nil, Options{}); !errors.Is(err, ErrNotThisFormat) {
		t.Fatalf("empty: got %v", err)
	}
}

func TestLoadValidates(t *testing.T) {
	for _, test := range testFiles {
		s := mustLoad(t, test.data(), Options{})
		if s.Format != test.format {
			t.Fatalf("%s: format %v", test.name, s.Format)
		}
		if err := s.Validate(); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if len(s.Warnings) != 0 && test.name != "gdm" {
			t.Fatalf("%s: unexpected warnings: %q", test.name, s.Warnings)
		}
	}
}

// Every prefix of a valid file must load or fail cleanly.
func TestTruncatedFiles(t *testing.T) {
	for _, test := range testFiles {
		data := test.data()
		for n := 0; n < len(data); n++ {
			for _, strict := range []bool{false, true} {
				s, err := Load(data[:n], Options{Strict: strict})
				if err == nil {
					if s == nil {
						t.Fatalf("%s[:%d]: nil song without error", test.name, n)
					}
					continue
				}
				var perr *ParseError
				if !errors.As(err, &perr) && !errors.Is(err, ErrNotThisFormat) {
					t.Fatalf("%s[:%d] strict=%v: unexpected error type %T: %v", test.name, n, strict, err, err)
				}
			}
		}
	}
}

func TestStrictTruncation(t *testing.T) {
	data := buildMOD()
	data = data[:len(data)-3]

	s := mustLoad(t, data, Options{})
	if len(s.Warnings) != 1 || !strings.Contains(s.Warnings[0], "truncated") {
		t.Fatalf("warnings: %q", s.Warnings)
	}
	if got := s.Samples[1].Data(); got[1] != 10<<8 || got[4] != 40<<8 || got[5] != 0 {
		t.Fatalf("partial sample data: %v", got)
	}

	_, err := Load(data, Options{Strict: true})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("strict: got %v", err)
	}
	if !strings.Contains(perr.Message, "sample data") {
		t.Fatalf("error has no stage tag: %q", perr.Message)
	}
}

func hasTruncationWarning(s *song.Song) bool {
	for _, w := range s.Warnings {
		if strings.Contains(w, "truncated") {
			return true
		}
	}
	return false
}

// patternsMatch reports whether every cell of got equals the cell of
// full, and whether the differing cells are all empty.
func patternsMatch(full, got *song.Song) (equal, partial bool) {
	equal = true
	for i := 0; i < full.Patterns.Len(); i++ {
		fp := full.Patterns.Get(song.PatternIndex(i))
		gp := got.Patterns.Get(song.PatternIndex(i))
		if fp == nil {
			continue
		}
		if gp == nil || gp.Rows() != fp.Rows() || gp.Channels() != fp.Channels() {
			equal = false
			continue
		}
		for row := 0; row < fp.Rows(); row++ {
			for ch := 0; ch < fp.Channels(); ch++ {
				have, want := *gp.Cell(row, ch), *fp.Cell(row, ch)
				if have == want {
					continue
				}
				equal = false
				if have != (song.Command{}) {
					partial = true
				}
			}
		}
	}
	return equal, partial
}

// A prefix never commits a half-read cell. Lost pattern data warns in
// lenient mode and fails in strict mode.
func TestTruncatedPatterns(t *testing.T) {
	for _, test := range testFiles {
		data := test.data()
		full := mustLoad(t, data, Options{})
		for n := 0; n < len(data); n++ {
			s, err := Load(data[:n], Options{})
			if err == nil {
				equal, partial := patternsMatch(full, s)
				if partial {
					t.Fatalf("%s[:%d]: partial cell committed", test.name, n)
				}
				if !equal && !hasTruncationWarning(s) {
					t.Fatalf("%s[:%d]: pattern data lost without a warning", test.name, n)
				}
			}
			s, err = Load(data[:n], Options{Strict: true})
			if err == nil {
				if equal, _ := patternsMatch(full, s); !equal {
					t.Fatalf("%s[:%d]: strict load lost pattern data", test.name, n)
				}
			}
		}
	}
}

func TestTruncatedPatternCell(t *testing.T) {
	data, cellEnd := buildPTMPatternLast()
	full := mustLoad(t, data, Options{})
	if c := *full.Patterns.Get(0).Cell(10, 0); c.Note != 61 || c.Instr != 1 || c.VolCmd != song.VolVolume || c.Vol != 48 {
		t.Fatalf("full cell %+v", c)
	}
	if len(full.Warnings) != 0 {
		t.Fatalf("full file warnings %q", full.Warnings)
	}

	tests := []struct {
		name    string
		cut     int
		keepRow bool
	}{
		{"inside the cell", cellEnd - 1, false},
		{"inside the effect", cellEnd - 2, false},
		{"after the cell", cellEnd, true},
		{"missing rows", len(data) - 4, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cut := data[:test.cut]
			s := mustLoad(t, cut, Options{})
			if !hasTruncationWarning(s) {
				t.Fatalf("no warning: %q", s.Warnings)
			}
			c := *s.Patterns.Get(0).Cell(10, 0)
			if test.keepRow && c != *full.Patterns.Get(0).Cell(10, 0) {
				t.Fatalf("complete cell lost: %+v", c)
			}
			if !test.keepRow && c != (song.Command{}) {
				t.Fatalf("partial cell committed: %+v", c)
			}

			_, err := Load(cut, Options{Strict: true})
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("strict: got %v", err)
			}
			if !strings.Contains(perr.Message, "pattern data") {
				t.Fatalf("error has no stage tag: %q", perr.Message)
			}
		})
	}
}

func TestHeaderOnly(t *testing.T) {
	s := mustLoad(t, buildMOD(), Options{HeaderOnly: true})
	if s.Title != "test mod" || s.NumSamples() != 31 {
		t.Fatalf("title=%q samples=%d", s.Title, s.NumSamples())
	}
	if s.Patterns.Len() != 0 || s.Samples[1].HasData() {
		t.Fatalf("header-only load read patterns or sample data")
	}
	if s.Samples[1].Length != 8 {
		t.Fatalf("sample length %d", s.Samples[1].Length)
	}
}

func TestLoadMOD(t *testing.T) {
	s := mustLoad(t, buildMOD(), Options{})
	if s.NumChannels() != 4 || s.Title != "test mod" {
		t.Fatalf("channels=%d title=%q", s.NumChannels(), s.Title)
	}
	wantPan := []uint16{64, 192, 192, 64}
	for i, ch := range s.Channels {
		if ch.Pan != wantPan[i] {
			t.Fatalf("channel %d pan %d", i, ch.Pan)
		}
	}
	seq := s.Order()
	if len(seq.Orders) != 1 || seq.Orders[0] != 0 || seq.Restart != 0 {
		t.Fatalf("orders %+v", seq)
	}
	c := *s.Patterns.Get(0).Cell(0, 0)
	want := song.Command{Note: song.NoteMiddleC, Instr: 1, Effect: song.EffectVolume, Param: 64}
	if c != want {
		t.Fatalf("cell %+v, want %+v", c, want)
	}
	smp := s.Samples[1]
	if smp.Length != 8 || smp.Volume != 256 || smp.Flags.Has(song.SampleLoop) {
		t.Fatalf("sample %+v", smp)
	}
	if got := smp.Data()[4]; got != 40<<8 {
		t.Fatalf("sample data[4]=%d", got)
	}
}

func TestLoadS3M(t *testing.T) {
	s := mustLoad(t, buildS3M(), Options{})
	if s.NumChannels() != 4 {
		t.Fatalf("channels=%d", s.NumChannels())
	}
	if s.TrackerName != "Scream Tracker 3" || s.DefaultGlobalVolume != 256 || s.FastSlides {
		t.Fatalf("header: tracker=%q gv=%d fast=%v", s.TrackerName, s.DefaultGlobalVolume, s.FastSlides)
	}
	wantPan := []uint16{64, 192, 64, 192}
	for i, ch := range s.Channels {
		if ch.Pan != wantPan[i] {
			t.Fatalf("channel %d pan %d", i, ch.Pan)
		}
	}
	if seq := s.Order(); len(seq.Orders) != 2 || seq.Orders[1] != song.OrderEnd || seq.Length() != 1 {
		t.Fatalf("orders %+v", seq.Orders)
	}
	c := *s.Patterns.Get(0).Cell(0, 0)
	want := song.Command{Note: song.NoteMiddleC, Instr: 1, VolCmd: song.VolVolume, Vol: 32, Effect: song.EffectSpeed, Param: 6}
	if c != want {
		t.Fatalf("cell %+v, want %+v", c, want)
	}
	smp := s.Samples[1]
	if smp.Name != "smp1" || smp.C5Speed != 8363 {
		t.Fatalf("sample %q c5=%d", smp.Name, smp.C5Speed)
	}
	wantData := []int16{0, 127 << 8, -128 << 8, 0}
	for i, v := range wantData {
		if smp.Data()[i] != v {
			t.Fatalf("unsigned decoding: %v", smp.Data())
		}
	}
}

func TestLoadXM(t *testing.T) {
	s := mustLoad(t, buildXM(), Options{})
	if s.NumChannels() != 2 || !s.LinearSlides || s.DefaultTempo != 125 {
		t.Fatalf("header: channels=%d linear=%v tempo=%d", s.NumChannels(), s.LinearSlides, s.DefaultTempo)
	}
	pat := s.Patterns.Get(0)
	if pat.Rows() != 4 {
		t.Fatalf("rows=%d", pat.Rows())
	}
	c := *pat.Cell(0, 0)
	want := song.Command{Note: song.NoteMiddleC, Instr: 1, VolCmd: song.VolVolume, Vol: 64, Effect: song.EffectGlobalVolume, Param: 64}
	if c != want {
		t.Fatalf("cell %+v, want %+v", c, want)
	}
	if !pat.Cell(0, 1).IsEmpty() {
		t.Fatalf("compact empty cell decoded as %+v", *pat.Cell(0, 1))
	}

	ins := s.Instruments[1]
	if ins.Name != "instr" || ins.FadeOut != 512 {
		t.Fatalf("instrument %q fadeout=%d", ins.Name, ins.FadeOut)
	}
	if smp, note := ins.SampleFor(song.NoteMiddleC); smp != 1 || note != song.NoteMiddleC {
		t.Fatalf("keyboard maps C-5 to %d/%d", smp, note)
	}
	env := ins.VolumeEnvelope
	if !env.Active() || len(env.Nodes) != 2 || env.Nodes[1] != (song.EnvelopeNode{Tick: 10, Value: 0}) {
		t.Fatalf("volume envelope %+v", env)
	}

	smp := s.Samples[1]
	if !smp.Flags.Has(song.Sample16Bit) || smp.Length != 4 || smp.Volume != 192 || smp.FineTune != -16 {
		t.Fatalf("sample %+v", smp)
	}
	for i, v := range []int16{100, 300, -200, 0} {
		if smp.Data()[i] != v {
			t.Fatalf("delta decoding: %v", smp.Data()[:4])
		}
	}
}

func TestLoadIT(t *testing.T) {
	s := mustLoad(t, buildIT(), Options{})
	if s.NumChannels() != 3 {
		t.Fatalf("unused channels not trimmed: %d", s.NumChannels())
	}
	if !s.Channels[1].Surround || s.Channels[0].Pan != 128 {
		t.Fatalf("channel settings %+v", s.Channels)
	}
	if s.InstrumentMode() {
		t.Fatalf("sample-mode file has instruments")
	}
	pat := s.Patterns.Get(0)
	c := *pat.Cell(0, 2)
	want := song.Command{Note: song.NoteMiddleC, Instr: 1, VolCmd: song.VolVolume, Vol: 64, Effect: song.EffectTempo, Param: 0x80}
	if c != want {
		t.Fatalf("cell %+v, want %+v", c, want)
	}
	if got := *pat.Cell(1, 2); got != (song.Command{Note: song.NoteMiddleC, Instr: 1}) {
		t.Fatalf("remembered values: %+v", got)
	}

	smp := s.Samples[1]
	if smp.C5Speed != 22050 || !smp.Flags.Has(song.SamplePanning) || smp.Pan != 128 {
		t.Fatalf("sample %+v", smp)
	}
	for i, v := range []int16{10, 15, 12, 15, 13} {
		if smp.Data()[i] != v<<8 {
			t.Fatalf("decompressed data: %v", smp.Data()[:5])
		}
	}
}

func TestDecompressIT215(t *testing.T) {
	// The same stream integrated twice.
	dst := make([]int16, 5)
	decompressIT(dst, itCompressedBlock(), false, true)
	acc := int8(0)
	for i, v := range []int8{10, 15, 12, 15, 13} {
		acc += v
		if dst[i] != int16(acc)<<8 {
			t.Fatalf("frame %d: %d, want %d", i, dst[i], int16(acc)<<8)
		}
	}
}

func TestLoadPTM(t *testing.T) {
	s := mustLoad(t, buildPTM(), Options{})
	if s.NumChannels() != 4 || s.TrackerName != "PolyTracker 2.03" {
		t.Fatalf("channels=%d tracker=%q", s.NumChannels(), s.TrackerName)
	}
	wantPan := []uint16{4, 244, 116, 132}
	for i, ch := range s.Channels {
		if ch.Pan != wantPan[i] {
			t.Fatalf("channel %d pan %d", i, ch.Pan)
		}
	}
	pat := s.Patterns.Get(0)
	tests := []struct {
		row, ch int
		want    song.Command
	}{
		{0, 0, song.Command{Note: 61, Instr: 1, VolCmd: song.VolVolume, Vol: 48, Effect: song.EffectS3MCmdEx, Param: 0x9F}},
		{1, 1, song.Command{VolCmd: song.VolOffset, Vol: 2, Effect: song.EffectS3MCmdEx, Param: 0x9F}},
		{1, 2, song.Command{Effect: song.EffectGlobalVolume, Param: 64}},
	}
	for _, test := range tests {
		if got := *pat.Cell(test.row, test.ch); got != test.want {
			t.Fatalf("(%d,%d): %+v, want %+v", test.row, test.ch, got, test.want)
		}
	}
	smp := s.Samples[1]
	if smp.C5Speed != 16726 {
		t.Fatalf("c5speed=%d", smp.C5Speed)
	}
	for i, v := range []int16{10, 20, -10, 0} {
		if smp.Data()[i] != v<<8 {
			t.Fatalf("delta decoding: %v", smp.Data()[:4])
		}
	}
}

func TestLoadGDM(t *testing.T) {
	s := mustLoad(t, buildGDM(), Options{})
	if s.Format != song.FormatS3M || s.NumChannels() != 3 {
		t.Fatalf("format=%v channels=%d", s.Format, s.NumChannels())
	}
	if s.Artist != "someone" || s.Message != "hello\nworld" {
		t.Fatalf("artist=%q message=%q", s.Artist, s.Message)
	}
	if s.Channels[0].Pan != 8 || s.Channels[1].Pan != 248 || !s.Channels[2].Surround {
		t.Fatalf("channels %+v", s.Channels)
	}

	// Two cells use the same unsupported effect: one warning.
	if len(s.Warnings) != 1 || !strings.Contains(s.Warnings[0], "unsupported GDM effect") {
		t.Fatalf("warnings %q", s.Warnings)
	}

	pat := s.Patterns.Get(0)
	tests := []struct {
		ch   int
		want song.Command
	}{
		{0, song.Command{Note: song.NoteMiddleC, Instr: 1, VolCmd: song.VolVolume, Vol: 40}},
		{1, song.Command{Effect: song.EffectS3MCmdEx, Param: 0x91}},
		{2, song.Command{VolCmd: song.VolPanning, Vol: 17}},
	}
	for _, test := range tests {
		if got := *pat.Cell(0, test.ch); got != test.want {
			t.Fatalf("channel %d: %+v, want %+v", test.ch, got, test.want)
		}
	}

	smp := s.Samples[1]
	if smp.Volume != 128 || smp.C5Speed != 8363 {
		t.Fatalf("sample %+v", smp)
	}
	for i, v := range []int16{0, 16 << 8, -16 << 8, 0} {
		if smp.Data()[i] != v {
			t.Fatalf("unsigned decoding: %v", smp.Data()[:4])
		}
	}
}

func TestLoadWAV(t *testing.T) {
	s := mustLoad(t, buildWAV(""), Options{})
	if s.NumChannels() != 2 || s.NumSamples() != 2 || s.Title != "wave" {
		t.Fatalf("channels=%d samples=%d title=%q", s.NumChannels(), s.NumSamples(), s.Title)
	}
	if s.Channels[0].Pan != 0 || s.Channels[1].Pan != 256 {
		t.Fatalf("pans %d %d", s.Channels[0].Pan, s.Channels[1].Pan)
	}
	if s.DefaultSpeed != 1 || s.DefaultTempo != 125 {
		t.Fatalf("speed=%d tempo=%d", s.DefaultSpeed, s.DefaultTempo)
	}
	for ch, sign := range []int16{1, -1} {
		smp := s.Samples[ch+1]
		if smp.C5Speed != 44100 || smp.Length != 4 || smp.Name != "wave" {
			t.Fatalf("sample %d: %+v", ch+1, smp)
		}
		for i, v := range []int16{100, 200, 300, 400} {
			if smp.Data()[i] != sign*v {
				t.Fatalf("sample %d data %v", ch+1, smp.Data()[:4])
			}
		}
		// The inclusive file loop end becomes exclusive.
		if !smp.Flags.Has(song.SampleLoop) || smp.LoopStart != 1 || smp.LoopEnd != 3 {
			t.Fatalf("sample %d loop %d..%d", ch+1, smp.LoopStart, smp.LoopEnd)
		}
		c := *s.Patterns.Get(0).Cell(0, ch)
		if c.Note != song.NoteMiddleC || c.Instr != uint8(ch+1) {
			t.Fatalf("trigger cell %+v", c)
		}
	}

	s = mustLoad(t, buildWAV("Modplug Tracker 1.16"), Options{})
	if smp := s.Samples[1]; smp.LoopEnd != 2 {
		t.Fatalf("old ModPlug loop end %d, want 2", smp.LoopEnd)
	}
}

func TestLoadWAVUnpaddedChunks(t *testing.T) {
	data := buildRIFF(false,
		wavFmtChunk(wavFormatPCM, 1, 8000, 8),
		riffChunk{"junk", []byte{1, 2, 3}},
		riffChunk{"data", []byte{0x80, 0xC0, 0x40, 0x80}},
	)
	s := mustLoad(t, data, Options{})
	want := []int16{0, 0x40 << 8, -0x40 << 8, 0}
	for i, v := range want {
		if s.Samples[1].Data()[i] != v {
			t.Fatalf("data %v", s.Samples[1].Data()[:4])
		}
	}
}

func TestLoadWAVLongSample(t *testing.T) {
	// 400 frames at 1 Hz are 20000 rows: too many 64-row patterns,
	// so the patterns grow instead.
	data := buildRIFF(true,
		wavFmtChunk(wavFormatPCM, 1, 1, 8),
		riffChunk{"data", bytes.Repeat([]byte{0x80}, 400)},
	)
	s := mustLoad(t, data, Options{})
	if s.Patterns.Len() != 239 || s.Order().Length() != 239 {
		t.Fatalf("patterns=%d orders=%d", s.Patterns.Len(), s.Order().Length())
	}
	if first, last := s.Patterns.Get(0).Rows(), s.Patterns.Get(238).Rows(); first != 84 || last != 8 {
		t.Fatalf("rows: first=%d last=%d", first, last)
	}
}

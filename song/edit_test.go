package song

import (
	"errors"
	"testing"
)

// newEditSong builds a song where every cell identifies its channel.
func newEditSong(t *testing.T, f Format, channels int) *Song {
	t.Helper()
	s, err := New(f, channels)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range []PatternIndex{0, 1} {
		if err := s.Patterns.Insert(p, 64); err != nil {
			t.Fatal(err)
		}
		pat := s.Patterns.Get(p)
		for row := 0; row < pat.Rows(); row++ {
			for ch := 0; ch < channels; ch++ {
				*pat.Cell(row, ch) = Command{Note: uint8(ch + 1), Instr: uint8(row%3 + 1), Param: uint8(p)}
			}
		}
	}
	for i := range s.Channels {
		s.Channels[i].Name = string(rune('A' + i))
	}
	return s
}

func TestRearrangeChannelsIdentity(t *testing.T) {
	s := newEditSong(t, FormatS3M, 4)
	before := s.Patterns.Get(1).Clone()
	if err := s.RearrangeChannels([]ChannelIndex{0, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	after := s.Patterns.Get(1)
	for row := 0; row < 64; row++ {
		for ch := 0; ch < 4; ch++ {
			if *before.Cell(row, ch) != *after.Cell(row, ch) {
				t.Fatalf("identity rearrangement changed (%d, %d)", row, ch)
			}
		}
	}
}

func TestRearrangeChannelsMapping(t *testing.T) {
	s := newEditSong(t, FormatIT, 4)
	if err := s.RearrangeChannels([]ChannelIndex{3, NewChannel, 0}); err != nil {
		t.Fatal(err)
	}
	if s.NumChannels() != 3 {
		t.Fatalf("channels=%d", s.NumChannels())
	}
	if s.Channels[0].Name != "D" || s.Channels[1].Name != "" || s.Channels[2].Name != "A" {
		t.Fatalf("channel settings: %+v", s.Channels)
	}
	if s.Channels[1] != DefaultChannelSettings() {
		t.Fatalf("new channel has non-default settings")
	}
	for _, pi := range []PatternIndex{0, 1} {
		p := s.Patterns.Get(pi)
		if p.Channels() != 3 {
			t.Fatalf("pattern %d has %d channels", pi, p.Channels())
		}
		for row := 0; row < p.Rows(); row++ {
			if p.Cell(row, 0).Note != 4 || !p.Cell(row, 1).IsEmpty() || p.Cell(row, 2).Note != 1 {
				t.Fatalf("pattern %d row %d: %+v", pi, row, p.Row(row))
			}
		}
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestRemoveChannels(t *testing.T) {
	s := newEditSong(t, FormatS3M, 4)
	if err := s.RemoveChannels([]bool{true, true, false, true}); err != nil {
		t.Fatal(err)
	}
	if s.NumChannels() != 3 {
		t.Fatalf("channels=%d", s.NumChannels())
	}
	p := s.Patterns.Get(0)
	for row := 0; row < p.Rows(); row++ {
		// Old channel 3 is now channel 2.
		if got := p.Cell(row, 2).Note; got != 4 {
			t.Fatalf("row %d channel 2 note=%d", row, got)
		}
	}
	if err := s.RemoveChannels([]bool{true, true, true}); !errors.Is(err, ErrNoChange) {
		t.Fatalf("keep all: %v", err)
	}
	if err := s.RemoveChannels([]bool{true}); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("mask length mismatch: %v", err)
	}
}

func TestRearrangeChannelsFailureKeepsSong(t *testing.T) {
	s := newEditSong(t, FormatS3M, 4)
	tooMany := make([]ChannelIndex, 33)
	for i := range tooMany {
		tooMany[i] = NewChannel
	}
	var limit *LimitError
	if err := s.RearrangeChannels(tooMany); !errors.As(err, &limit) {
		t.Fatalf("want a limit error, got %v", err)
	}
	if err := s.RearrangeChannels([]ChannelIndex{0, 9}); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("want an index error, got %v", err)
	}
	if s.NumChannels() != 4 || s.Patterns.Get(0).Channels() != 4 {
		t.Fatalf("failed rearrangement modified the song")
	}
	if s.Patterns.Get(0).Cell(10, 3).Note != 4 {
		t.Fatalf("failed rearrangement modified the cells")
	}
}

func TestChangeNumChannels(t *testing.T) {
	s := newEditSong(t, FormatXM, 2)
	if err := s.ChangeNumChannels(5); err != nil {
		t.Fatal(err)
	}
	p := s.Patterns.Get(0)
	if p.Channels() != 5 || p.Cell(0, 1).Note != 2 || !p.Cell(0, 4).IsEmpty() {
		t.Fatalf("grow: %+v", p.Row(0))
	}
	if err := s.ChangeNumChannels(5); !errors.Is(err, ErrNoChange) {
		t.Fatalf("same count: %v", err)
	}
}

func addTestSamples(t *testing.T, s *Song, values ...int16) {
	t.Helper()
	for _, v := range values {
		_, smp, err := s.AddSample()
		if err != nil {
			t.Fatal(err)
		}
		smp.Allocate(4)
		for i := range smp.Data() {
			smp.Data()[i] = v
		}
		smp.Name = string(rune('0' + v))
	}
}

func TestRearrangeSamplesDuplicates(t *testing.T) {
	s := newEditSong(t, FormatS3M, 2)
	addTestSamples(t, s, 1, 2, 3)

	// Sample 1 twice, sample 2 dropped, sample 3 moved to the front.
	if err := s.RearrangeSamples([]SampleIndex{3, 1, 1}); err != nil {
		t.Fatal(err)
	}
	if s.NumSamples() != 3 {
		t.Fatalf("samples=%d", s.NumSamples())
	}
	if s.Sample(1).Name != "3" || s.Sample(2).Name != "1" || s.Sample(3).Name != "1" {
		t.Fatalf("order: %q %q %q", s.Sample(1).Name, s.Sample(2).Name, s.Sample(3).Name)
	}
	s.Sample(2).Data()[0] = 99
	if s.Sample(3).Data()[0] != 1 {
		t.Fatalf("duplicated samples share data")
	}

	// Pattern instrument column: 1 -> 3 (last occurrence), 2 -> 0, 3 -> 1.
	p := s.Patterns.Get(0)
	want := map[int]uint8{0: 3, 1: 0, 2: 1}
	for row := 0; row < p.Rows(); row++ {
		if got := p.Cell(row, 0).Instr; got != want[row%3] {
			t.Fatalf("row %d instr=%d, want %d", row, got, want[row%3])
		}
	}
}

func TestRearrangeDuplicatesKeepLast(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		setup  func(s *Song) (original any)
		apply  func(s *Song) error
		slot   func(s *Song, i int) any
	}{
		{
			name:   "samples",
			format: FormatS3M,
			setup: func(s *Song) any {
				addTestSamples(t, s, 1, 2, 3)
				return s.Sample(1)
			},
			apply: func(s *Song) error { return s.RearrangeSamples([]SampleIndex{1, 3, 1}) },
			slot:  func(s *Song, i int) any { return s.Sample(SampleIndex(i)) },
		},
		{
			name:   "instruments",
			format: FormatIT,
			setup: func(s *Song) any {
				for i := 0; i < 3; i++ {
					if _, _, err := s.AddInstrument(); err != nil {
						t.Fatal(err)
					}
				}
				return s.Instrument(1)
			},
			apply: func(s *Song) error { return s.RearrangeInstruments([]InstrumentIndex{1, 3, 1}) },
			slot:  func(s *Song, i int) any { return s.Instrument(InstrumentIndex(i)) },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newEditSong(t, tt.format, 1)
			original := tt.setup(s)
			if err := tt.apply(s); err != nil {
				t.Fatal(err)
			}
			if tt.slot(s, 3) != original {
				t.Fatalf("last listed slot does not hold the original")
			}
			if tt.slot(s, 1) == original {
				t.Fatalf("first listed slot should be a copy")
			}
			// Instrument column: 1 -> 3, 2 -> 0, 3 -> 2.
			p := s.Patterns.Get(0)
			want := map[int]uint8{0: 3, 1: 0, 2: 2}
			for row := 0; row < 6; row++ {
				if got := p.Cell(row, 0).Instr; got != want[row%3] {
					t.Fatalf("row %d instr=%d, want %d", row, got, want[row%3])
				}
			}
		})
	}
}

func TestRearrangeSamplesInstrumentMode(t *testing.T) {
	s := newEditSong(t, FormatIT, 2)
	addTestSamples(t, s, 1, 2)
	_, ins, err := s.AddInstrument()
	if err != nil {
		t.Fatal(err)
	}
	ins.SetKeyboard(2)
	ins.Keyboard[0] = 1

	if err := s.RearrangeSamples([]SampleIndex{2}); err != nil {
		t.Fatal(err)
	}
	if ins.Keyboard[0] != 0 || ins.Keyboard[60] != 1 {
		t.Fatalf("keyboard: %d %d", ins.Keyboard[0], ins.Keyboard[60])
	}
	// The pattern column refers to instruments and must stay untouched.
	if s.Patterns.Get(0).Cell(1, 0).Instr != 2 {
		t.Fatalf("instrument column was rewritten")
	}
}

func TestRearrangeSamplesLimit(t *testing.T) {
	s := newEditSong(t, FormatMOD, 4)
	addTestSamples(t, s, 1)
	var limit *LimitError
	if err := s.RearrangeSamples(make([]SampleIndex, 32)); !errors.As(err, &limit) {
		t.Fatalf("want a limit error, got %v", err)
	}
	if s.NumSamples() != 1 || s.Sample(1).Name != "1" {
		t.Fatalf("song was modified")
	}
}

func TestRemoveInstrument(t *testing.T) {
	s := newEditSong(t, FormatIT, 2)
	addTestSamples(t, s, 1, 2)
	for k := SampleIndex(1); k <= 2; k++ {
		_, ins, _ := s.AddInstrument()
		ins.SetKeyboard(k)
	}
	_, third, _ := s.AddInstrument()
	third.SetKeyboard(2)

	if err := s.RemoveInstrument(2, true); err != nil {
		t.Fatal(err)
	}
	if s.NumInstruments() != 2 {
		t.Fatalf("instruments=%d", s.NumInstruments())
	}
	// Sample 2 is still used by the former third instrument.
	if !s.Sample(2).HasData() {
		t.Fatalf("shared sample was removed")
	}
	p := s.Patterns.Get(0)
	want := map[int]uint8{0: 1, 1: 0, 2: 2}
	for row := 0; row < 6; row++ {
		if got := p.Cell(row, 0).Instr; got != want[row%3] {
			t.Fatalf("row %d instr=%d, want %d", row, got, want[row%3])
		}
	}

	if err := s.RemoveInstrument(1, true); err != nil {
		t.Fatal(err)
	}
	if s.Sample(1).HasData() || s.Sample(1).Name != "1" {
		t.Fatalf("unshared sample should be cleared, keeping its name")
	}
}

func TestConvertInstrumentsToSamples(t *testing.T) {
	s := newEditSong(t, FormatIT, 1)
	addTestSamples(t, s, 1, 2, 3)
	for k := SampleIndex(1); k <= 3; k++ {
		_, ins, _ := s.AddInstrument()
		ins.SetKeyboard(4 - k)
		ins.NoteMap[0] = 13
	}
	if err := s.ConvertTo(FormatS3M); err != nil {
		t.Fatal(err)
	}
	if s.InstrumentMode() {
		t.Fatalf("S3M has no instruments")
	}
	c := s.Patterns.Get(0).Cell(0, 0)
	// Instrument 1 maps everything to sample 3 and note C-0 to C-1.
	if c.Instr != 3 || c.Note != 13 {
		t.Fatalf("cell %+v", *c)
	}
}

func TestConvertToDropsUnsupportedCommands(t *testing.T) {
	s := newEditSong(t, FormatIT, 2)
	c := s.Patterns.Get(0).Cell(0, 0)
	c.Effect, c.Param = EffectFilter, 0x40
	c.VolCmd, c.Vol = VolPortaUp, 3
	d := s.Patterns.Get(0).Cell(0, 1)
	d.Effect, d.Param = EffectVolumeSlide, 0x0F

	if err := s.ConvertTo(FormatXM); err != nil {
		t.Fatal(err)
	}
	if c.Effect != EffectNone || c.Param != 0 || c.VolCmd != VolNone {
		t.Fatalf("unsupported command kept: %+v", *c)
	}
	if d.Effect != EffectVolumeSlide || d.Param != 0x0F {
		t.Fatalf("supported command dropped: %+v", *d)
	}
}

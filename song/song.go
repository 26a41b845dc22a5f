// Package song is the in-memory representation of a tracker module.
//
// A Song owns its samples, instruments, patterns and order lists.
// Objects refer to each other by index, index 0 meaning "none",
// so structural edits rewrite indices explicitly (see edit.go).
package song

import (
	"fmt"
	"slices"
)

type ChannelIndex int

// NewChannel marks a fresh empty channel in a channel rearrangement.
const NewChannel ChannelIndex = -1

// ChannelSettings are the static, per-song channel defaults.
type ChannelSettings struct {
	Name     string
	Pan      uint16 // 0..256
	Volume   uint8  // 0..64
	Surround bool
	Muted    bool

	// Plugin is the 1-based plugin slot this channel is routed through, 0 = none.
	Plugin int
}

// DefaultChannelSettings returns centered, full-volume settings.
func DefaultChannelSettings() ChannelSettings {
	return ChannelSettings{Pan: 128, Volume: 64}
}

// Song is a complete module.
type Song struct {
	Format Format

	Title       string
	Artist      string
	Message     string
	TrackerName string

	Channels []ChannelSettings

	// Samples[0] and Instruments[0] are always nil.
	Samples     []*Sample
	Instruments []*Instrument

	Patterns PatternStore

	Sequences       []Sequence
	CurrentSequence int

	DefaultSpeed        int // ticks per row
	DefaultTempo        int // BPM
	DefaultGlobalVolume int // 0..256
	// PreAmp is the sample pre-amplification, 48 is the neutral level
	// used by most loaders.
	PreAmp int

	LinearSlides bool
	// FastSlides turns on ScreamTracker volume slides on tick 0.
	FastSlides bool

	// Warnings collects non-fatal problems found while loading.
	Warnings []string
}

// New creates an empty song with a single empty sequence.
func New(f Format, channels int) (*Song, error) {
	spec := f.Spec()
	if spec == nil {
		return nil, fmt.Errorf("unknown format %d", f)
	}
	if !spec.ValidChannels(channels) {
		return nil, &LimitError{What: "channels", Min: spec.ChannelsMin, Max: spec.ChannelsMax, Got: channels}
	}
	s := &Song{
		Format:              f,
		Samples:             []*Sample{nil},
		Instruments:         []*Instrument{nil},
		Sequences:           []Sequence{{}},
		DefaultSpeed:        6,
		DefaultTempo:        125,
		DefaultGlobalVolume: 256,
		PreAmp:              48,
		LinearSlides:        spec.LinearSlidesDefault,
	}
	s.Channels = make([]ChannelSettings, channels)
	for i := range s.Channels {
		s.Channels[i] = DefaultChannelSettings()
	}
	s.Patterns = PatternStore{channels: channels, spec: spec}
	return s, nil
}

// Spec returns the format specification of the song.
func (s *Song) Spec() *Specification { return s.Format.Spec() }

func (s *Song) NumChannels() int    { return len(s.Channels) }
func (s *Song) NumSamples() int     { return len(s.Samples) - 1 }
func (s *Song) NumInstruments() int { return len(s.Instruments) - 1 }

// InstrumentMode reports whether patterns refer to instruments (true) or
// directly to samples (false).
func (s *Song) InstrumentMode() bool { return s.NumInstruments() > 0 }

// Sample returns the sample at a 1-based index or nil.
func (s *Song) Sample(i SampleIndex) *Sample {
	if i == 0 || int(i) >= len(s.Samples) {
		return nil
	}
	return s.Samples[i]
}

// Instrument returns the instrument at a 1-based index or nil.
func (s *Song) Instrument(i InstrumentIndex) *Instrument {
	if i == 0 || int(i) >= len(s.Instruments) {
		return nil
	}
	return s.Instruments[i]
}

// Order returns the current sequence.
func (s *Song) Order() *Sequence {
	if s.CurrentSequence < 0 || s.CurrentSequence >= len(s.Sequences) {
		s.CurrentSequence = 0
	}
	if len(s.Sequences) == 0 {
		s.Sequences = []Sequence{{}}
	}
	return &s.Sequences[s.CurrentSequence]
}

// AddSample appends a new initialized sample.
func (s *Song) AddSample() (SampleIndex, *Sample, error) {
	spec := s.Spec()
	if s.NumSamples() >= spec.SamplesMax {
		return 0, nil, &LimitError{What: "samples", Min: 0, Max: spec.SamplesMax, Got: s.NumSamples() + 1}
	}
	smp := NewSample(s.Format)
	s.Samples = append(s.Samples, smp)
	return SampleIndex(s.NumSamples()), smp, nil
}

// AddInstrument appends a new instrument.
func (s *Song) AddInstrument() (InstrumentIndex, *Instrument, error) {
	spec := s.Spec()
	if s.NumInstruments() >= spec.InstrumentsMax {
		return 0, nil, &LimitError{What: "instruments", Min: 0, Max: spec.InstrumentsMax, Got: s.NumInstruments() + 1}
	}
	ins := NewInstrument()
	s.Instruments = append(s.Instruments, ins)
	return InstrumentIndex(s.NumInstruments()), ins, nil
}

// Warn records a load warning once.
func (s *Song) Warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if !slices.Contains(s.Warnings, msg) {
		s.Warnings = append(s.Warnings, msg)
	}
}

// PrepareSamples sanitizes every sample loop and refreshes the wrap windows.
// Loaders call it once all sample data has been read.
func (s *Song) PrepareSamples() {
	for _, smp := range s.Samples {
		if smp == nil {
			continue
		}
		smp.SanitizeLoops()
		smp.PrecomputeLoops()
	}
}

// Validate checks the song against its format limits.
func (s *Song) Validate() error {
	spec := s.Spec()
	if spec == nil {
		return fmt.Errorf("unknown format %d", s.Format)
	}
	check := func(what string, got, lo, hi int) error {
		if got < lo || got > hi {
			return &LimitError{What: what, Min: lo, Max: hi, Got: got}
		}
		return nil
	}
	if err := check("channels", s.NumChannels(), spec.ChannelsMin, spec.ChannelsMax); err != nil {
		return err
	}
	if err := check("patterns", s.Patterns.Len(), 0, spec.PatternsMax); err != nil {
		return err
	}
	if err := check("samples", s.NumSamples(), 0, spec.SamplesMax); err != nil {
		return err
	}
	if err := check("instruments", s.NumInstruments(), 0, spec.InstrumentsMax); err != nil {
		return err
	}
	for i := range s.Sequences {
		if err := check("orders", len(s.Sequences[i].Orders), 0, spec.OrdersMax); err != nil {
			return err
		}
	}
	for _, p := range s.Patterns.All() {
		if p == nil {
			continue
		}
		if p.channels != s.NumChannels() {
			return fmt.Errorf("pattern has %d channels, song has %d", p.channels, s.NumChannels())
		}
		if err := check("rows", p.rows, spec.RowsMin, spec.RowsMax); err != nil {
			return err
		}
	}
	return nil
}

// ConvertTo changes the format family of the song.
//
// Samples are converted, commands that the target format cannot
// express are dropped and instruments are flattened into samples
// when the target has none. The song must fit the target limits.
func (s *Song) ConvertTo(f Format) error {
	dst := f.Spec()
	if dst == nil {
		return fmt.Errorf("unknown format %d", f)
	}
	if !dst.ValidChannels(s.NumChannels()) {
		return &LimitError{What: "channels", Min: dst.ChannelsMin, Max: dst.ChannelsMax, Got: s.NumChannels()}
	}
	if s.NumSamples() > dst.SamplesMax {
		return &LimitError{What: "samples", Min: 0, Max: dst.SamplesMax, Got: s.NumSamples()}
	}
	for _, p := range s.Patterns.All() {
		if p != nil && !dst.ValidRows(p.rows) {
			return &LimitError{What: "rows", Min: dst.RowsMin, Max: dst.RowsMax, Got: p.rows}
		}
	}
	if s.InstrumentMode() && dst.InstrumentsMax == 0 {
		s.ConvertInstrumentsToSamples()
	}
	for _, smp := range s.Samples {
		if smp != nil {
			smp.Convert(s.Format, f)
		}
	}
	s.Patterns.ForEachCommand(func(c *Command) {
		if !dst.Effects.Has(c.Effect) {
			c.Effect, c.Param = EffectNone, 0
		}
		if !dst.VolumeCommands.Has(c.VolCmd) {
			c.VolCmd, c.Vol = VolNone, 0
		}
	})
	s.Format = f
	s.Patterns.spec = dst
	if f == FormatMOD || f == FormatS3M {
		s.LinearSlides = false
	}
	return nil
}

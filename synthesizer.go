package modplug

import (
	"io"
	"math"

	"github.com/ksnyder9801/modplug/song"
)

// Synthesizer can be used to play individual notes with the samples
// and instruments of a song.
//
// It is more efficient and convenient to use for this
// use case than a stream with a constant song re-loading.
type Synthesizer struct {
	config SynthesizerConfig
	stream *Stream

	// Frames left of the current note.
	remain int
}

type SynthesizerConfig struct {
	// NumChannels is the number of notes that can play at once.
	NumChannels int

	// Stream configures the underlying stream.
	// The repeat count is ignored.
	Stream Config
}

// defaultNoteTicks is the note length used for a zero duration.
const defaultNoteTicks = 240

// previewTempo gives 20ms ticks.
const previewTempo = 125

func NewSynthesizer(config SynthesizerConfig) *Synthesizer {
	config.NumChannels = clampMin(config.NumChannels, 1)
	config.Stream.RepeatCount = 0
	return &Synthesizer{config: config}
}

// LoadInstruments prepares the instruments and samples of src
// for further use.
//
// The patterns don't really matter as this method
// is only interested in instruments (and samples).
// They are shared with src, not copied.
func (s *Synthesizer) LoadInstruments(src *song.Song) error {
	if src == nil {
		return ErrNoSong
	}
	preview, err := song.New(src.Format, s.config.NumChannels)
	if err != nil {
		return err
	}
	preview.Title = src.Title
	preview.Samples = src.Samples
	preview.Instruments = src.Instruments
	preview.LinearSlides = src.LinearSlides
	preview.PreAmp = src.PreAmp
	preview.DefaultTempo = previewTempo
	rows := max(src.Spec().RowsMin, 1)
	p, err := preview.Patterns.Append(rows)
	if err != nil {
		return err
	}
	preview.Order().Orders = []song.PatternIndex{p}

	if s.stream == nil {
		s.stream, err = NewStream(preview, s.config.Stream)
		return err
	}
	return s.stream.Swap(preview)
}

// SetVolume adjusts the global volume scaling for the underlying stream.
// 1 is the neutral level.
func (s *Synthesizer) SetVolume(v float64) error {
	if s.stream == nil {
		return ErrNoSong
	}
	settings := s.stream.Config().Mixer
	if v <= 0 {
		settings.GainMillibel = -10000
	} else {
		settings.GainMillibel = int(math.Round(2000 * math.Log10(v)))
	}
	return s.stream.SetMixerSettings(settings)
}

// PlayNote plays one or more notes up to the specified duration in seconds.
// Using 0 for the duration will play it for several seconds.
// Notes beyond the number of channels are ignored.
func (s *Synthesizer) PlayNote(duration float64, notes ...song.Command) error {
	if s.stream == nil {
		return ErrNoSong
	}
	ticks := defaultNoteTicks
	if duration > 0 {
		ticks = 1 + int(duration*previewTempo/2.5)
	}
	err := s.stream.Edit(func(sng *song.Song) error {
		pat := sng.Patterns.Get(sng.Order().At(0))
		for r := range pat.Rows() {
			clear(pat.Row(r))
		}
		copy(pat.Row(0), notes)
		sng.DefaultSpeed = ticks
		return nil
	})
	if err != nil {
		return err
	}
	s.stream.Stop()
	if err := s.stream.Play(0, 0); err != nil {
		return err
	}
	s.remain = int(float64(ticks) * calcSamplesPerTick(s.stream.Config().SampleRate, previewTempo))
	return nil
}

// Render writes the current note into dst, see Stream.Render.
func (s *Synthesizer) Render(dst []float32, frames int) int {
	if s.stream == nil {
		return 0
	}
	n := s.stream.Render(dst, min(frames, s.remain))
	s.remain -= n
	return n
}

// Read implements io.Reader with 16-bit little endian PCM.
// io.EOF is returned once the note is over.
func (s *Synthesizer) Read(b []byte) (int, error) {
	if s.stream == nil || s.remain == 0 {
		return 0, io.EOF
	}
	frameBytes := s.stream.Config().Mixer.Channels * 2
	b = b[:min(len(b), s.remain*frameBytes)]
	n, err := s.stream.Read(b)
	s.remain -= n / frameBytes
	if err == nil && s.remain == 0 {
		err = io.EOF
	}
	return n, err
}

// Stop silences the synthesizer.
func (s *Synthesizer) Stop() {
	if s.stream != nil {
		s.stream.Stop()
	}
	s.remain = 0
}

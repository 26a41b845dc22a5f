// Package modplug plays tracker modules.
//
// A Stream renders a song.Song into interleaved PCM frames. The stream is
// pulled by an audio backend through Render, RenderInt16 or Read; every
// exported method is safe to call from other goroutines while rendering.
package modplug

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/ksnyder9801/modplug/internal/mixer"
	"github.com/ksnyder9801/modplug/loaders"
	"github.com/ksnyder9801/modplug/song"
)

// State is the playback state of a Stream.
type State uint8

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	}
	return "stopped"
}

// ErrNoSong is returned by the operations that need a loaded song.
var ErrNoSong = errors.New("no song loaded")

// Stream plays a song.
//
// The Read method produces 16-bit little endian PCM bytes; this is what
// ebiten/audio and oto expect. Use a Stream as an io.Reader argument
// for audio.NewPlayer().
type Stream struct {
	mu sync.Mutex

	song   *song.Song
	spec   *song.Specification
	config Config
	log    *slog.Logger
	mixer  *mixer.Mixer
	state  State

	channels []streamChannel

	seq sequencer

	// Frames left in the current tick.
	tickRemain     int
	tickFrac       float64
	samplesPerTick float64
	framesPlayed   int64

	globalVolume int // 0..256

	plugins   []Plugin
	pluginBuf [4][]float32
	pluginIn  [][]float32
	pluginOut [][]float32
	byteBuf   []int16
	floatBuf  []float32
	eventFunc func(e StreamEvent)
}

// NewStream creates a stopped stream for a song.
// The stream takes ownership of the song; edit it through Edit.
func NewStream(s *song.Song, config Config) (*Stream, error) {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSong
	}
	if s.Spec() == nil {
		return nil, fmt.Errorf("unknown format %d", s.Format)
	}
	st := &Stream{
		config: config,
		log:    config.Logger,
		mixer:  mixer.New(config.SampleRate, config.Mixer),
	}
	st.mixer.SetBusHandler(st.processBus)
	st.setSong(s)
	return st, nil
}

// Load reads a module from r and creates a stream for it.
func Load(r io.Reader, config Config) (*Stream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	s, err := loaders.Load(data, loaders.Options{Logger: config.Logger})
	if err != nil {
		return nil, err
	}
	return NewStream(s, config)
}

// setSong swaps the song in; the caller holds the lock.
func (s *Stream) setSong(sng *song.Song) {
	s.song = sng
	s.spec = sng.Spec()
	s.resizeChannels()
	s.reset()
	s.state = Stopped
}

// Swap replaces the song. Playback stops.
func (s *Stream) Swap(sng *song.Song) error {
	if sng == nil || sng.Spec() == nil {
		return ErrNoSong
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setSong(sng)
	return nil
}

func (s *Stream) resizeChannels() {
	n := s.song.NumChannels()
	if cap(s.channels) < n {
		channels := make([]streamChannel, n)
		copy(channels, s.channels)
		s.channels = channels
	}
	old := len(s.channels)
	s.channels = s.channels[:n]
	for i := old; i < n; i++ {
		s.channels[i] = streamChannel{id: i}
		s.channels[i].Reset(s.song.Channels[i])
	}
	s.mixer.SetVoices(n)
	for i := range s.channels {
		s.channels[i].id = i
		s.mixer.SetBus(i, s.song.Channels[i].Plugin)
	}
}

// reset prepares the stream to play the song from the start.
func (s *Stream) reset() {
	for i := range s.channels {
		s.channels[i].id = i
		s.channels[i].Reset(s.song.Channels[i])
		s.mixer.Cut(i)
		s.mixer.SetFilter(i, 127, 0, 0)
	}
	s.globalVolume = clamp(s.song.DefaultGlobalVolume, 0, 256)
	s.mixer.SetPreAmp(float64(clampMin(s.song.PreAmp, 0)) / 48 * mixHeadroom)
	s.seq.reset(s.song, s.config.RepeatCount)
	s.setTempo(s.song.DefaultTempo)
	s.tickRemain = 0
	s.tickFrac = 0
	s.framesPlayed = 0
}

// mixHeadroom keeps a few loud channels from clipping.
const mixHeadroom = 0.5

func (s *Stream) setTempo(tempo int) {
	if tempo <= 0 {
		tempo = 125
	}
	s.seq.tempo = clamp(tempo, 32, 512)
	s.samplesPerTick = calcSamplesPerTick(s.config.SampleRate, s.seq.tempo)
}

// Play starts the playback at an order and row.
func (s *Stream) Play(order, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Stopped {
		s.reset()
	}
	if err := s.seek(order, row); err != nil {
		return err
	}
	s.state = Playing
	s.log.Debug("play", "order", order, "row", row)
	return nil
}

// Pause suspends the playback; Resume continues it.
// A paused stream renders silence.
func (s *Stream) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Playing {
		s.state = Paused
	}
}

func (s *Stream) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Paused {
		s.state = Playing
	}
}

// Stop ends the playback. Stop is synchronous: once it returns,
// no render call touches the channel state until the next Play.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Stopped
	for i := range s.channels {
		s.mixer.Cut(i)
	}
}

// State returns the playback state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetPosition moves the playback to an order and row without
// changing the state.
func (s *Stream) SetPosition(order, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seek(order, row)
}

func (s *Stream) seek(order, row int) error {
	seq := s.song.Order()
	if order < 0 || order >= max(seq.Length(), 1) {
		return fmt.Errorf("order %d is out of the valid range [0, %d)", order, seq.Length())
	}
	if row < 0 || row >= s.seq.patternRows(s.song, seq.At(order)) {
		return fmt.Errorf("row %d is out of the valid range", row)
	}
	s.seq.jumpTo(order, row)
	s.tickRemain = 0
	for i := range s.channels {
		ch := &s.channels[i]
		ch.patternLoopRow, ch.patternLoopCount = 0, 0
	}
	return nil
}

// Render writes up to frames interleaved float frames into dst and
// reports the number written. Fewer frames than requested mean the
// song has ended; a stopped stream writes nothing.
func (s *Stream) Render(dst []float32, frames int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.render(dst, frames)
}

// RenderInt16 is Render with a conversion to clipped 16-bit samples.
func (s *Stream) RenderInt16(dst []int16, frames int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderInt16(dst, frames)
}

func (s *Stream) renderInt16(dst []int16, frames int) int {
	n := frames * s.config.Mixer.Channels
	if cap(s.floatBuf) < n {
		s.floatBuf = make([]float32, n)
	}
	buf := s.floatBuf[:n]
	written := s.render(buf, frames)
	mixer.ToInt16(dst[:written*s.config.Mixer.Channels], buf[:written*s.config.Mixer.Channels])
	return written
}

// Read implements io.Reader with 16-bit little endian PCM.
//
// When the song has ended, io.EOF is returned.
func (s *Stream) Read(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nch := s.config.Mixer.Channels
	frameBytes := nch * 2
	frames := len(b) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	if cap(s.byteBuf) < frames*nch {
		s.byteBuf = make([]int16, frames*nch)
	}
	pcm := s.byteBuf[:frames*nch]
	written := s.renderInt16(pcm, frames)
	for i, v := range pcm[:written*nch] {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	if written < frames {
		return written * frameBytes, io.EOF
	}
	return written * frameBytes, nil
}

func (s *Stream) render(dst []float32, frames int) int {
	nch := s.config.Mixer.Channels
	for i := range s.channels {
		s.channels[i].vu = 0
	}
	switch s.state {
	case Stopped:
		return 0
	case Paused:
		clear(dst[:frames*nch])
		return frames
	}

	done := 0
	for done < frames {
		if s.tickRemain == 0 {
			if !s.nextTick() {
				s.state = Stopped
				s.emit(StreamEvent{Kind: EventEnd, Time: s.seconds()})
				s.log.Debug("song ended", "frames", s.framesPlayed)
				break
			}
			s.tickFrac += s.samplesPerTick
			s.tickRemain = max(int(s.tickFrac), 1)
			s.tickFrac -= float64(s.tickRemain)
		}
		n := min(s.tickRemain, frames-done)
		s.mixer.Mix(dst[done*nch:(done+n)*nch], n)
		for i := range s.channels {
			s.channels[i].vu = max(s.channels[i].vu, s.mixer.Peak(i))
		}
		s.tickRemain -= n
		s.framesPlayed += int64(n)
		done += n
	}
	return done
}

func (s *Stream) seconds() float64 {
	return float64(s.framesPlayed) / float64(s.config.SampleRate)
}

// Edit runs a structural edit of the song while the playback is held.
//
// Edit cannot tell where channels moved to. When the edit changes the
// channel settings (their number or their order included), every
// channel restarts silent. Use RearrangeChannels to reorder channels
// and keep their playback state.
func (s *Stream) Edit(fn func(s *song.Song) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := slices.Clone(s.song.Channels)
	if err := fn(s.song); err != nil {
		return err
	}
	s.spec = s.song.Spec()
	if !slices.Equal(s.song.Channels, before) {
		s.log.Debug("channels changed", "from", len(before), "to", s.song.NumChannels())
		s.resizeChannels()
		for i := range s.channels {
			s.channels[i].Reset(s.song.Channels[i])
			s.mixer.Cut(i)
		}
	}
	s.seq.clampPosition(s.song)
	return nil
}

// RearrangeChannels reorders the song channels and moves the playback
// state of every channel along with it. See song.Song.RearrangeChannels.
func (s *Stream) RearrangeChannels(order []song.ChannelIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.song.RearrangeChannels(order); err != nil {
		return err
	}
	channels := make([]streamChannel, len(order))
	voices := make([]int, len(order))
	for i, old := range order {
		voices[i] = int(old)
		if old == song.NewChannel || int(old) >= len(s.channels) {
			voices[i] = -1
			channels[i].Reset(s.song.Channels[i])
			continue
		}
		channels[i] = s.channels[old]
	}
	for i := range channels {
		channels[i].id = i
	}
	s.channels = channels
	s.mixer.PermuteVoices(voices)
	for i := range s.channels {
		s.mixer.SetBus(i, s.song.Channels[i].Plugin)
	}
	return nil
}

// SetEventHandler installs an event listener to the stream.
//
// f is called from the rendering goroutine with the stream lock held;
// it must not call back into the stream.
func (s *Stream) SetEventHandler(f func(e StreamEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventFunc = f
}

func (s *Stream) emit(e StreamEvent) {
	if s.eventFunc != nil {
		s.eventFunc(e)
	}
}

// SetMute mutes or unmutes a channel.
func (s *Stream) SetMute(channel int, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if channel < 0 || channel >= len(s.channels) {
		return song.ErrInvalidIndex
	}
	s.song.Channels[channel].Muted = muted
	s.channels[channel].muted = muted
	return nil
}

// SetMixerSettings changes the mixer settings; the number of output
// channels cannot change.
func (s *Stream) SetMixerSettings(settings mixer.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.Channels != s.config.Mixer.Channels {
		return fmt.Errorf("output channel count cannot change from %d to %d", s.config.Mixer.Channels, settings.Channels)
	}
	s.config.Mixer = settings
	s.mixer.SetSettings(settings)
	return nil
}

// Config returns the stream configuration.
func (s *Stream) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Song returns the song. Modify it only through Edit.
func (s *Stream) Song() *song.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.song
}

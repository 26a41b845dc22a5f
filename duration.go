package modplug

import (
	"time"

	"github.com/ksnyder9801/modplug/internal/mixer"
	"github.com/ksnyder9801/modplug/song"
)

// maxDurationTicks bounds the duration scan of songs that never end;
// it is about 24 hours at the default tempo.
const maxDurationTicks = 24 * 60 * 60 * 50

// Duration estimates how long the song plays with the given
// configuration. The sequencer runs without mixing.
// A song that loops forever reports the length of its first pass.
func Duration(sng *song.Song, config Config) (time.Duration, error) {
	if config.RepeatCount < 0 {
		config.RepeatCount = 0
	}
	config.applyDefaults()
	// The scan never mixes; the interpolation does not matter.
	config.Mixer.Interpolation = mixer.InterpolationNone
	shadow, err := NewStream(sng, config)
	if err != nil {
		return 0, err
	}
	return shadow.scanDuration(), nil
}

// Duration estimates the length of the stream song, see Duration.
func (s *Stream) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	config := s.config
	config.Logger = nil
	d, err := Duration(s.song, config)
	if err != nil {
		return 0
	}
	return d
}

func (s *Stream) scanDuration() time.Duration {
	s.reset()
	s.state = Playing
	frames := 0.0
	for ticks := 0; ticks < maxDurationTicks && s.nextTick(); ticks++ {
		frames += s.samplesPerTick
	}
	s.state = Stopped
	return time.Duration(frames / float64(s.config.SampleRate) * float64(time.Second))
}

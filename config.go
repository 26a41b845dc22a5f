package modplug

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/ksnyder9801/modplug/internal/mixer"
)

// Config configures a Stream.
//
// The config is fixed for the lifetime of a stream; create a new
// stream to change the output format.
type Config struct {
	// SampleRate is the output rate in Hz.
	// A zero value means 48000.
	SampleRate int

	// Mixer holds the resampling and output settings, including the
	// number of interleaved output channels (1, 2 or 4).
	// Zero settings mean mixer.DefaultSettings.
	Mixer mixer.Settings

	// RepeatCount is the number of extra passes over the song.
	// Zero plays the song once, -1 loops forever.
	RepeatCount int

	// Logger receives debug information about the playback.
	// A nil logger discards everything.
	Logger *slog.Logger
}

// DefaultConfig returns a 48 kHz stereo configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: 48000,
		Mixer:      mixer.DefaultSettings(),
	}
}

func (c *Config) applyDefaults() {
	if c.SampleRate == 0 {
		c.SampleRate = 48000
	}
	if c.Mixer == (mixer.Settings{}) {
		c.Mixer = mixer.DefaultSettings()
	}
	if c.Mixer.Channels == 0 {
		c.Mixer.Channels = 2
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (c *Config) validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 384000 {
		return fmt.Errorf("sample rate %d is out of the valid range [8000, 384000]", c.SampleRate)
	}
	if c.RepeatCount < -1 {
		return fmt.Errorf("invalid repeat count %d", c.RepeatCount)
	}
	return c.Mixer.Validate()
}

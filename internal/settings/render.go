package settings

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ksnyder9801/modplug"
	"github.com/ksnyder9801/modplug/internal/mixer"
)

// RenderConfig is the persisted form of the playback and export settings.
type RenderConfig struct {
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	Interpolation    string `yaml:"interpolation"`
	RampUpMicros     int    `yaml:"ramp_up_us"`
	RampDownMicros   int    `yaml:"ramp_down_us"`
	StereoSeparation int    `yaml:"stereo_separation"`
	SoftPanning      bool   `yaml:"soft_panning"`
	GainMillibel     int    `yaml:"gain_mb"`

	// Loops is the number of extra passes over the song.
	Loops int `yaml:"loops"`

	Format    string  `yaml:"format"`
	Mode      string  `yaml:"mode"`
	Bitrate   int     `yaml:"bitrate"`
	Quality   int     `yaml:"quality"`
	Normalize bool    `yaml:"normalize"`
	MaxLength float64 `yaml:"max_seconds,omitempty"`

	// Mutes holds the channel mute flags, see EncodeBinary.
	Mutes string `yaml:"mutes,omitempty"`
}

// DefaultRenderConfig matches modplug.DefaultConfig.
func DefaultRenderConfig() RenderConfig {
	m := mixer.DefaultSettings()
	return RenderConfig{
		SampleRate:       48000,
		Channels:         m.Channels,
		Interpolation:    m.Interpolation.String(),
		RampUpMicros:     m.RampUpMicros,
		RampDownMicros:   m.RampDownMicros,
		StereoSeparation: m.StereoSeparation,
		SoftPanning:      m.SoftPanning,
		GainMillibel:     m.GainMillibel,
		Format:           "wav",
		Mode:             "cbr",
		Bitrate:          192,
		Quality:          5,
	}
}

// Load decodes a YAML config. Missing keys keep their defaults.
func Load(r io.Reader) (RenderConfig, error) {
	c := DefaultRenderConfig()
	data, err := io.ReadAll(r)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse render config: %w", err)
	}
	return c, nil
}

// LoadFile is Load for a file path.
func LoadFile(path string) (RenderConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return DefaultRenderConfig(), err
	}
	defer f.Close()
	return Load(f)
}

// Write encodes the config as YAML.
func (c RenderConfig) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// MixerSettings converts the config into validated mixer settings.
func (c RenderConfig) MixerSettings() (mixer.Settings, error) {
	interp, err := mixer.ParseInterpolation(c.Interpolation)
	if err != nil {
		return mixer.Settings{}, err
	}
	m := mixer.Settings{
		Interpolation:    interp,
		RampUpMicros:     c.RampUpMicros,
		RampDownMicros:   c.RampDownMicros,
		StereoSeparation: c.StereoSeparation,
		SoftPanning:      c.SoftPanning,
		GainMillibel:     c.GainMillibel,
		Channels:         c.Channels,
	}
	return m, m.Validate()
}

// StreamConfig builds the stream configuration.
func (c RenderConfig) StreamConfig() (modplug.Config, error) {
	m, err := c.MixerSettings()
	if err != nil {
		return modplug.Config{}, err
	}
	if c.Loops < -1 {
		return modplug.Config{}, fmt.Errorf("invalid loop count %d", c.Loops)
	}
	return modplug.Config{
		SampleRate:  c.SampleRate,
		Mixer:       m,
		RepeatCount: c.Loops,
	}, nil
}

// ChannelMutes decodes the channel mute flags.
func (c RenderConfig) ChannelMutes() ([]bool, error) {
	if c.Mutes == "" {
		return nil, nil
	}
	b, err := DecodeBinary(c.Mutes)
	if err != nil {
		return nil, fmt.Errorf("mutes: %w", err)
	}
	mutes := make([]bool, len(b))
	for i, v := range b {
		mutes[i] = v != 0
	}
	return mutes, nil
}

// SetChannelMutes stores the channel mute flags.
func (c *RenderConfig) SetChannelMutes(mutes []bool) {
	b := make([]byte, len(mutes))
	for i, m := range mutes {
		if m {
			b[i] = 1
		}
	}
	c.Mutes = EncodeBinary(b)
}

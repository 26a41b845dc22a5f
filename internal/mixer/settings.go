package mixer

import (
	"fmt"
	"math"
	"strings"
)

// Interpolation selects the resampling kernel.
type Interpolation uint8

const (
	InterpolationNone Interpolation = iota
	InterpolationLinear
	InterpolationCubic
	// InterpolationFIR is an 8-tap windowed sinc.
	InterpolationFIR
	// InterpolationPolyphase picks one of several sinc filters depending
	// on the resampling ratio, so downsampled voices do not alias.
	InterpolationPolyphase
)

var interpolationNames = [...]string{
	InterpolationNone:      "none",
	InterpolationLinear:    "linear",
	InterpolationCubic:     "cubic",
	InterpolationFIR:       "fir",
	InterpolationPolyphase: "polyphase",
}

func (i Interpolation) String() string {
	if int(i) < len(interpolationNames) {
		return interpolationNames[i]
	}
	return "unknown"
}

// ParseInterpolation is the inverse of Interpolation.String.
func ParseInterpolation(s string) (Interpolation, error) {
	for i, name := range interpolationNames {
		if strings.EqualFold(s, name) {
			return Interpolation(i), nil
		}
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

// Settings configure the mixer output.
type Settings struct {
	Interpolation Interpolation

	// Volume ramp durations in microseconds. Every volume change
	// is spread linearly over this time.
	RampUpMicros   int
	RampDownMicros int

	// StereoSeparation is in percent: 0 is mono, 100 is the normal
	// width and 200 exaggerates the stereo image.
	StereoSeparation int

	// SoftPanning selects the equal-power pan law.
	SoftPanning bool

	// GainMillibel is the master gain (100 mB = 1 dB).
	GainMillibel int

	// Channels is the number of output channels: 1, 2 or 4.
	// With 4 channels, surround voices go to the rear pair.
	Channels int
}

// DefaultSettings returns stereo output with cubic interpolation.
func DefaultSettings() Settings {
	return Settings{
		Interpolation:    InterpolationCubic,
		RampUpMicros:     363,
		RampDownMicros:   952,
		StereoSeparation: 100,
		Channels:         2,
	}
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch {
	case s.Interpolation > InterpolationPolyphase:
		return fmt.Errorf("invalid interpolation %d", s.Interpolation)
	case s.RampUpMicros < 0 || s.RampDownMicros < 0:
		return fmt.Errorf("negative ramp duration")
	case s.StereoSeparation < 0 || s.StereoSeparation > 200:
		return fmt.Errorf("stereo separation %d%% is out of the valid range [0, 200]", s.StereoSeparation)
	case s.Channels != 1 && s.Channels != 2 && s.Channels != 4:
		return fmt.Errorf("unsupported output channel count %d", s.Channels)
	}
	return nil
}

// Gain converts the millibel setting to a linear factor.
func (s Settings) Gain() float32 {
	return float32(math.Pow(10, float64(s.GainMillibel)/2000))
}

func microsToFrames(micros, sampleRate int) int {
	return max(1, micros*sampleRate/1_000_000)
}

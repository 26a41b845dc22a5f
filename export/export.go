// Package export renders songs to audio files and MIDI scores.
package export

import (
	"fmt"
	"io"
	"strings"
)

// Tags is the file metadata written by the encoders that support it.
type Tags struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	Genre   string
	URL     string
	BPM     string
	TrackNo string
}

// Mode selects the rate control of lossy encoders.
type Mode uint8

const (
	CBR Mode = iota
	VBR
	Quality
)

var modeNames = [...]string{CBR: "cbr", VBR: "vbr", Quality: "quality"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "invalid"
}

func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown encoder mode %q", s)
}

// EncoderSettings describe the encoded stream.
// Bitrate (kbit/s) and Quality (0..10) only matter to lossy encoders.
type EncoderSettings struct {
	Mode       Mode
	Bitrate    int
	Quality    int
	SampleRate int
	Channels   int
}

func (s EncoderSettings) validate() error {
	switch {
	case s.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", s.SampleRate)
	case s.Channels != 1 && s.Channels != 2 && s.Channels != 4:
		return fmt.Errorf("unsupported channel count %d", s.Channels)
	case s.Mode > Quality:
		return fmt.Errorf("invalid encoder mode %d", s.Mode)
	case s.Quality < 0 || s.Quality > 10:
		return fmt.Errorf("quality %d is out of the valid range [0, 10]", s.Quality)
	}
	return nil
}

// Encoder consumes interleaved float frames in -1..1.
type Encoder interface {
	WriteFrames(samples []float32) error
	Close() error
}

// Formats lists the encoders NewEncoder knows about.
var Formats = []string{"wav", "raw"}

// NewEncoder creates an encoder by format name.
// The WAV encoder seeks back to patch the header on Close.
func NewEncoder(format string, w io.WriteSeeker, settings EncoderSettings, tags Tags) (Encoder, error) {
	switch strings.ToLower(format) {
	case "wav":
		return NewWAVEncoder(w, settings, tags)
	case "raw":
		return NewRawEncoder(w, settings)
	}
	return nil, fmt.Errorf("unknown export format %q (want one of %v)", format, Formats)
}

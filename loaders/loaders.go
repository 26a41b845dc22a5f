// Package loaders reads tracker module files into song.Song values.
//
// Every format has a cheap header check and a full loader. Load tries
// the formats in turn; a file is handed to the first loader whose
// header check accepts it.
package loaders

import (
	"errors"
	"log/slog"

	"github.com/ksnyder9801/modplug/fileread"
	"github.com/ksnyder9801/modplug/song"
)

// ErrNotThisFormat is returned when no loader recognizes the data.
var ErrNotThisFormat = errors.New("unrecognized module format")

// Options control the loading.
type Options struct {
	// Strict turns truncated pattern and sample data into an error.
	// By default the data that is present is kept, the rest is
	// silence, and a warning is added to Song.Warnings.
	Strict bool

	// HeaderOnly stops after the header: the song carries the
	// metadata and the structure counts, but no patterns or samples.
	HeaderOnly bool

	Logger *slog.Logger
}

type format struct {
	name string

	// detect checks the header. It reports the format family the
	// file would load as.
	detect func(r *fileread.Reader) (song.Format, bool)

	load func(p *parser)
}

// formats are tried in order. MOD goes last: its magic sits deep
// inside the file and is the least specific of all.
var formats = []format{
	{name: "s3m", detect: detectS3M, load: loadS3M},
	{name: "xm", detect: detectXM, load: loadXM},
	{name: "it", detect: detectIT, load: loadIT},
	{name: "ptm", detect: detectPTM, load: loadPTM},
	{name: "gdm", detect: detectGDM, load: loadGDM},
	{name: "wav", detect: detectWAV, load: loadWAV},
	{name: "mod", detect: detectMOD, load: loadMOD},
}

// Detect runs the header checks only.
func Detect(data []byte) (song.Format, error) {
	for _, f := range formats {
		if family, ok := f.detect(fileread.New(data)); ok {
			return family, nil
		}
	}
	return song.FormatNone, ErrNotThisFormat
}

// Load parses a module.
//
// A file that passes the header check of a format but turns out to
// be corrupt yields a *ParseError; the other formats are not tried.
func Load(data []byte, opts Options) (*song.Song, error) {
	for _, f := range formats {
		if _, ok := f.detect(fileread.New(data)); !ok {
			continue
		}
		p := newParser(data, opts)
		p.log = p.log.With("format", f.name)
		err := p.run(func() {
			f.load(p)
			if !opts.HeaderOnly {
				p.song.PrepareSamples()
			}
		})
		if err != nil {
			p.log.Debug("load failed", "err", err)
			return nil, err
		}
		if len(p.song.Warnings) != 0 {
			p.log.Debug("loaded with warnings", "count", len(p.song.Warnings))
		}
		return p.song, nil
	}
	return nil, ErrNotThisFormat
}

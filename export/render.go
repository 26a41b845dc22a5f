package export

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/ksnyder9801/modplug"
	"github.com/ksnyder9801/modplug/song"
)

// RenderOptions control an offline render.
type RenderOptions struct {
	// Loops is the number of extra passes over the song.
	// -1 loops until MaxLength.
	Loops int

	// StartOrder and EndOrder select the order range to render.
	// A negative EndOrder renders up to the song end.
	StartOrder int
	EndOrder   int

	// MaxLength stops the render early; zero means no limit.
	MaxLength time.Duration

	// Normalize scales the output so the loudest sample hits full scale.
	// The whole song is kept in memory until the end of the render.
	Normalize bool

	Logger *slog.Logger
}

// Stats describe a finished render.
type Stats struct {
	Frames int
	Peak   float32 // before normalization
	Gain   float32
}

// renderBlock is the number of frames rendered per step.
const renderBlock = 4096

// Render plays sng with config and feeds the output into enc.
// The encoder is closed on success.
func Render(sng *song.Song, config modplug.Config, enc Encoder, opts RenderOptions) (Stats, error) {
	var stats Stats
	if opts.Loops < 0 && opts.MaxLength <= 0 {
		return stats, errors.New("an endless render needs a length limit")
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	config.RepeatCount = opts.Loops
	st, err := modplug.NewStream(sng, config)
	if err != nil {
		return stats, err
	}
	config = st.Config()
	rate, nch := config.SampleRate, config.Mixer.Channels

	maxFrames := -1
	if opts.MaxLength > 0 {
		maxFrames = int(opts.MaxLength.Seconds() * float64(rate))
	}
	if opts.EndOrder >= 0 {
		if opts.EndOrder < opts.StartOrder {
			return stats, fmt.Errorf("end order %d is before the start order %d", opts.EndOrder, opts.StartOrder)
		}
		st.SetEventHandler(func(e modplug.StreamEvent) {
			if e.Kind != modplug.EventRow {
				return
			}
			if order, _ := e.RowEventData(); order > opts.EndOrder || order < opts.StartOrder {
				end := int(e.Time*float64(rate) + 0.5)
				if maxFrames < 0 || end < maxFrames {
					maxFrames = end
				}
			}
		})
	}
	if err := st.Play(opts.StartOrder, 0); err != nil {
		return stats, err
	}

	var all []float32
	block := make([]float32, renderBlock*nch)
	for maxFrames < 0 || stats.Frames < maxFrames {
		frames := renderBlock
		if maxFrames >= 0 {
			frames = min(frames, maxFrames-stats.Frames)
		}
		n := st.Render(block, frames)
		// The end of the order range may fall inside the block.
		if maxFrames >= 0 && stats.Frames+n > maxFrames {
			n = maxFrames - stats.Frames
		}
		out := block[:n*nch]
		if n > 0 {
			stats.Peak = max(stats.Peak, vek32.Max(out), -vek32.Min(out))
		}
		if opts.Normalize {
			all = append(all, out...)
		} else if err := enc.WriteFrames(out); err != nil {
			return stats, err
		}
		stats.Frames += n
		if n < frames {
			break
		}
	}

	stats.Gain = 1
	if opts.Normalize {
		if stats.Peak > 0 {
			stats.Gain = 1 / stats.Peak
			vek32.MulNumber_Inplace(all, stats.Gain)
		}
		if err := enc.WriteFrames(all); err != nil {
			return stats, err
		}
	}
	log.Debug("render finished", "frames", stats.Frames, "peak", stats.Peak, "gain", stats.Gain)
	return stats, enc.Close()
}

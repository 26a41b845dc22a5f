package audio

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

// Ebiten plays through the Ebitengine audio context.
// Ebitengine mixes stereo frames only.
type Ebiten struct {
	context *audio.Context
}

func NewEbiten(sampleRate, channels int) (*Ebiten, error) {
	if channels != 2 {
		return nil, fmt.Errorf("ebiten audio needs 2 channels, got %d", channels)
	}
	// You can have multiple players, but only one audio context.
	ctx := audio.CurrentContext()
	if ctx == nil {
		ctx = audio.NewContext(sampleRate)
	} else if ctx.SampleRate() != sampleRate {
		return nil, fmt.Errorf("audio context runs at %d Hz, not %d Hz", ctx.SampleRate(), sampleRate)
	}
	return &Ebiten{context: ctx}, nil
}

func (e *Ebiten) NewPlayer(r io.Reader) (Player, error) {
	p, err := e.context.NewPlayer(r)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Ebiten) SampleRate() int { return e.context.SampleRate() }

func (e *Ebiten) Channels() int { return 2 }

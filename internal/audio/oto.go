package audio

import (
	"io"

	"github.com/ebitengine/oto/v3"
)

// Oto plays through an oto context, in any channel count.
type Oto struct {
	context    *oto.Context
	sampleRate int
	channels   int
}

func NewOto(sampleRate, channels int) (*Oto, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready
	return &Oto{context: ctx, sampleRate: sampleRate, channels: channels}, nil
}

func (o *Oto) NewPlayer(r io.Reader) (Player, error) {
	p := o.context.NewPlayer(r)
	// 100ms buffer
	p.SetBufferSize(o.sampleRate / 10 * o.channels * 2)
	return p, nil
}

func (o *Oto) SampleRate() int { return o.sampleRate }

func (o *Oto) Channels() int { return o.channels }

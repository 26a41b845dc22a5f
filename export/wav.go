package export

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ksnyder9801/modplug/internal/mixer"
)

// WAVEncoder writes 16-bit PCM WAV files; the tags go to the RIFF
// INFO list.
type WAVEncoder struct {
	enc *wav.Encoder
	pcm []int16
	buf *audio.IntBuffer
}

func NewWAVEncoder(w io.WriteSeeker, settings EncoderSettings, tags Tags) (*WAVEncoder, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	enc := wav.NewEncoder(w, settings.SampleRate, 16, settings.Channels, 1)
	enc.Metadata = wavMetadata(tags)
	return &WAVEncoder{
		enc: enc,
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: settings.Channels,
				SampleRate:  settings.SampleRate,
			},
			SourceBitDepth: 16,
		},
	}, nil
}

func wavMetadata(tags Tags) *wav.Metadata {
	if tags == (Tags{}) {
		return nil
	}
	comment := tags.Comment
	if tags.URL != "" {
		if comment != "" {
			comment += "\n"
		}
		comment += tags.URL
	}
	return &wav.Metadata{
		Title:        tags.Title,
		Artist:       tags.Artist,
		Product:      tags.Album,
		CreationDate: tags.Year,
		Comments:     comment,
		Genre:        tags.Genre,
		TrackNbr:     tags.TrackNo,
		Software:     "modplug",
	}
}

func (e *WAVEncoder) WriteFrames(samples []float32) error {
	if cap(e.pcm) < len(samples) {
		e.pcm = make([]int16, len(samples))
		e.buf.Data = make([]int, len(samples))
	}
	pcm := e.pcm[:len(samples)]
	mixer.ToInt16(pcm, samples)
	data := e.buf.Data[:len(samples)]
	for i, v := range pcm {
		data[i] = int(v)
	}
	e.buf.Data = data
	return e.enc.Write(e.buf)
}

func (e *WAVEncoder) Close() error {
	return e.enc.Close()
}

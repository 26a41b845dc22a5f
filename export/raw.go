package export

import (
	"encoding/binary"
	"io"
	"math"
)

// RawEncoder writes headerless float32 little endian samples.
type RawEncoder struct {
	w   io.Writer
	buf []byte
}

func NewRawEncoder(w io.Writer, settings EncoderSettings) (*RawEncoder, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &RawEncoder{w: w}, nil
}

func (e *RawEncoder) WriteFrames(samples []float32) error {
	n := len(samples) * 4
	if cap(e.buf) < n {
		e.buf = make([]byte, n)
	}
	b := e.buf[:n]
	for i, v := range samples {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	_, err := e.w.Write(b)
	return err
}

func (e *RawEncoder) Close() error { return nil }

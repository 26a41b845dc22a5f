package loaders

import (
	"encoding/binary"
	"math"

	"github.com/ksnyder9801/modplug/song"
)

// sampleIO describes how PCM frames are stored in a file.
// Samples are always stored as int16 in memory, 8-bit data is scaled up.
type sampleIO struct {
	bits      int // 8, 16, 24 or 32
	unsigned  bool
	delta     bool
	bigEndian bool
	float     bool

	// Interleaved files: number of channels and the one to extract.
	channels int
	channel  int

	// ptmDelta16 is PolyTracker 16-bit data: the bytes are delta coded
	// as an 8-bit stream, then paired up as little-endian words.
	ptmDelta16 bool
}

func (sio sampleIO) frameBytes() int {
	return sio.bits / 8 * max(sio.channels, 1)
}

// readSample reads smp.Length frames from the current position.
// Short data goes through the truncation policy; the missing
// frames stay silent.
func (p *parser) readSample(smp *song.Sample, sio sampleIO, what string) {
	if smp.Length == 0 {
		return
	}
	p.allocSample(smp, smp.Length)
	if sio.bits > 8 {
		smp.Flags |= song.Sample16Bit
	}
	src := p.readAvailable(smp.Length*sio.frameBytes(), what)
	decodePCM(smp.Data(), src, sio)
}

// decodePCM converts as many complete frames as fit into dst.
func decodePCM(dst []int16, src []byte, sio sampleIO) int {
	fb := sio.frameBytes()
	n := min(len(dst), len(src)/fb)

	if sio.ptmDelta16 {
		var acc int8
		raw := make([]byte, n*2)
		for i := range raw {
			acc += int8(src[i])
			raw[i] = byte(acc)
		}
		for i := 0; i < n; i++ {
			dst[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return n
	}

	var order binary.ByteOrder = binary.LittleEndian
	if sio.bigEndian {
		order = binary.BigEndian
	}
	width := sio.bits / 8
	var acc int16
	for i := 0; i < n; i++ {
		b := src[i*fb+sio.channel*width:]
		var v int16
		switch {
		case sio.float:
			f := math.Float32frombits(order.Uint32(b))
			v = int16(math.Round(float64(max(-1, min(1, f))) * 32767))
		case width == 1:
			x := b[0]
			if sio.unsigned {
				x ^= 0x80
			}
			if sio.delta {
				acc = int16(int8(acc) + int8(x))
				v = acc << 8
			} else {
				v = int16(int8(x)) << 8
			}
		case width == 2:
			x := order.Uint16(b)
			if sio.unsigned {
				x ^= 0x8000
			}
			if sio.delta {
				acc += int16(x)
				v = acc
			} else {
				v = int16(x)
			}
		case width == 3:
			// Keep the top 16 bits.
			if sio.bigEndian {
				v = int16(uint16(b[0])<<8 | uint16(b[1]))
			} else {
				v = int16(uint16(b[2])<<8 | uint16(b[1]))
			}
			if sio.unsigned {
				v ^= -0x8000
			}
		case width == 4:
			x := order.Uint32(b)
			if sio.unsigned {
				x ^= 0x80000000
			}
			v = int16(x >> 16)
		}
		dst[i] = v
	}
	return n
}

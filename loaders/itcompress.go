package loaders

import "encoding/binary"

// Impulse Tracker 2.14 sample compression.
//
// The data is split into blocks (0x8000 frames for 8-bit samples,
// 0x4000 for 16-bit ones), each prefixed with its packed length.
// Inside a block, deltas are stored with a variable bit width and
// the width changes in-band. IT 2.15 files integrate twice.

type itBitReader struct {
	data []byte
	pos  int // in bits
}

func (r *itBitReader) read(n int) (uint32, bool) {
	if r.pos+n > len(r.data)*8 {
		return 0, false
	}
	var v uint32
	for i := 0; i < n; i++ {
		bit := r.data[(r.pos+i)/8] >> ((r.pos + i) % 8) & 1
		v |= uint32(bit) << i
	}
	r.pos += n
	return v, true
}

type itCompressionParams struct {
	blockFrames  int
	defaultWidth int
	lowWidthBits int    // bits of the new width in method 1
	topBit       uint32 // marker bit of method 3
	bits         int
}

var (
	itCompressed8  = itCompressionParams{blockFrames: 0x8000, defaultWidth: 9, lowWidthBits: 3, topBit: 0x100, bits: 8}
	itCompressed16 = itCompressionParams{blockFrames: 0x4000, defaultWidth: 17, lowWidthBits: 4, topBit: 0x10000, bits: 16}
)

// decompressIT unpacks into dst and returns the number of bytes of src
// consumed. Frames that cannot be decoded stay zero.
func decompressIT(dst []int16, src []byte, is16 bool, it215 bool) int {
	params := itCompressed8
	if is16 {
		params = itCompressed16
	}
	pos := 0
	written := 0
	for written < len(dst) {
		if pos+2 > len(src) {
			break
		}
		blockLen := int(binary.LittleEndian.Uint16(src[pos:]))
		pos += 2
		end := min(pos+blockLen, len(src))
		frames := min(params.blockFrames, len(dst)-written)
		decompressITBlock(dst[written:written+frames], src[pos:end], params, it215)
		written += frames
		pos = end
	}
	return pos
}

func decompressITBlock(dst []int16, block []byte, params itCompressionParams, it215 bool) {
	r := itBitReader{data: block}
	width := params.defaultWidth
	var mem1, mem2 int32
	for i := 0; i < len(dst); {
		v, ok := r.read(width)
		if !ok {
			return
		}
		switch {
		case width < 7:
			// Method 1: a lone top bit announces a width change.
			if v == 1<<(width-1) {
				nv, ok := r.read(params.lowWidthBits)
				if !ok {
					return
				}
				width = itNextWidth(int(nv)+1, width)
				continue
			}
		case width < params.defaultWidth:
			// Method 2: a small band at the top of the range.
			border := (uint32(1)<<params.bits-1)>>(params.defaultWidth-width) - uint32(params.bits/2)
			if v > border && v <= border+uint32(params.bits) {
				width = itNextWidth(int(v-border), width)
				continue
			}
		case width == params.defaultWidth:
			// Method 3: the extra top bit flags a width change.
			if v&params.topBit != 0 {
				width = int(v+1) & 0xFF
				if width < 1 || width > params.defaultWidth {
					return
				}
				continue
			}
		default:
			return
		}

		// Sign-extend the delta.
		var d int32
		if width < params.bits {
			shift := 32 - width
			d = int32(v<<shift) >> shift
		} else {
			shift := 32 - params.bits
			d = int32(v<<shift) >> shift
		}
		if params.bits == 8 {
			mem1 = int32(int8(mem1 + d))
			mem2 = int32(int8(mem2 + mem1))
		} else {
			mem1 = int32(int16(mem1 + d))
			mem2 = int32(int16(mem2 + mem1))
		}
		out := mem1
		if it215 {
			out = mem2
		}
		if params.bits == 8 {
			dst[i] = int16(out) << 8
		} else {
			dst[i] = int16(out)
		}
		i++
	}
}

// itNextWidth skips the current width: a change to the same width
// would be pointless, so that code means width+1.
func itNextWidth(v, width int) int {
	if v < width {
		return v
	}
	return v + 1
}

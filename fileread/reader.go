// Package fileread implements a bounds-checked cursor over an in-memory file.
//
// Every read either succeeds completely and advances the cursor,
// or fails without moving it. Failure is reported via a boolean
// result, never by panicking, so loaders can treat truncated or
// corrupted files as a normal condition.
package fileread

import (
	"bytes"
	"encoding/binary"
)

// Reader is a cursor over a byte slice.
//
// A Reader never copies the underlying data; sub-readers created
// by Chunk share memory with their parent.
type Reader struct {
	data []byte
	pos  int
}

// New returns a reader positioned at the start of data.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len reports the total number of bytes covered by the reader.
func (r *Reader) Len() int { return len(r.data) }

// Pos reports the cursor offset relative to the start of the reader.
func (r *Reader) Pos() int { return r.pos }

// BytesLeft reports how many bytes can still be read.
func (r *Reader) BytesLeft() int { return len(r.data) - r.pos }

// CanRead reports whether n more bytes are available.
func (r *Reader) CanRead(n int) bool {
	return n >= 0 && r.BytesLeft() >= n
}

// Rewind moves the cursor to the start.
func (r *Reader) Rewind() { r.pos = 0 }

// Seek moves the cursor to an absolute offset.
// Seeking to exactly Len() is allowed (no bytes left).
func (r *Reader) Seek(pos int) bool {
	if pos < 0 || pos > len(r.data) {
		return false
	}
	r.pos = pos
	return true
}

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int) bool {
	if !r.CanRead(n) {
		return false
	}
	r.pos += n
	return true
}

// SkipBack moves the cursor n bytes backwards.
func (r *Reader) SkipBack(n int) bool {
	if n < 0 || n > r.pos {
		return false
	}
	r.pos -= n
	return true
}

// Bytes returns the whole underlying slice.
func (r *Reader) Bytes() []byte { return r.data }

// Remaining returns the unread part of the data without advancing.
func (r *Reader) Remaining() []byte { return r.data[r.pos:] }

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, bool) {
	if !r.CanRead(n) {
		return nil, false
	}
	return r.data[r.pos : r.pos+n], true
}

// ReadBytes returns the next n bytes as a sub-slice.
// The returned slice aliases the reader memory.
func (r *Reader) ReadBytes(n int) ([]byte, bool) {
	b, ok := r.Peek(n)
	if ok {
		r.pos += n
	}
	return b, ok
}

// ReadMagic consumes len(magic) bytes if they match magic.
// On mismatch the cursor is left untouched.
func (r *Reader) ReadMagic(magic string) bool {
	b, ok := r.Peek(len(magic))
	if !ok || string(b) != magic {
		return false
	}
	r.pos += len(magic)
	return true
}

func (r *Reader) ReadUint8() (uint8, bool) {
	if !r.CanRead(1) {
		return 0, false
	}
	v := r.data[r.pos]
	r.pos++
	return v, true
}

func (r *Reader) ReadInt8() (int8, bool) {
	v, ok := r.ReadUint8()
	return int8(v), ok
}

func (r *Reader) ReadUint16LE() (uint16, bool) {
	b, ok := r.ReadBytes(2)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint16(b), true
}

func (r *Reader) ReadUint16BE() (uint16, bool) {
	b, ok := r.ReadBytes(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (r *Reader) ReadInt16LE() (int16, bool) {
	v, ok := r.ReadUint16LE()
	return int16(v), ok
}

func (r *Reader) ReadInt16BE() (int16, bool) {
	v, ok := r.ReadUint16BE()
	return int16(v), ok
}

// ReadUint24LE reads a 3-byte little-endian value.
func (r *Reader) ReadUint24LE() (uint32, bool) {
	b, ok := r.ReadBytes(3)
	if !ok {
		return 0, false
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, true
}

func (r *Reader) ReadUint32LE() (uint32, bool) {
	b, ok := r.ReadBytes(4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b), true
}

func (r *Reader) ReadUint32BE() (uint32, bool) {
	b, ok := r.ReadBytes(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

func (r *Reader) ReadInt32LE() (int32, bool) {
	v, ok := r.ReadUint32LE()
	return int32(v), ok
}

// ReadStruct decodes a fixed-size value (see encoding/binary rules)
// from the next binary.Size(v) bytes.
//
// Field layout in memory never matters: the decoding is done
// field by field with the given byte order.
func (r *Reader) ReadStruct(order binary.ByteOrder, v any) bool {
	size := binary.Size(v)
	if size < 0 {
		return false
	}
	b, ok := r.Peek(size)
	if !ok {
		return false
	}
	if err := binary.Read(bytes.NewReader(b), order, v); err != nil {
		return false
	}
	r.pos += size
	return true
}

// Chunk returns a sub-reader for the next n bytes and advances the cursor past them.
//
// If fewer than n bytes are available, the chunk is truncated
// to whatever is left; use Len() on the result to detect that.
func (r *Reader) Chunk(n int) *Reader {
	if n < 0 {
		n = 0
	}
	if n > r.BytesLeft() {
		n = r.BytesLeft()
	}
	sub := &Reader{data: r.data[r.pos : r.pos+n]}
	r.pos += n
	return sub
}

// ChunkAt returns a sub-reader for the [offset, offset+n) range
// without touching the cursor. The range is clamped to the data bounds.
func (r *Reader) ChunkAt(offset, n int) *Reader {
	if offset < 0 || offset > len(r.data) {
		return &Reader{}
	}
	end := offset + n
	if n < 0 || end > len(r.data) {
		end = len(r.data)
	}
	return &Reader{data: r.data[offset:end]}
}

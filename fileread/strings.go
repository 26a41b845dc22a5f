package fileread

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// StringMode tells how a fixed-width text field is terminated.
type StringMode int

const (
	// NullTerminated fields must contain a zero byte; text after it is ignored.
	// A field without a terminator keeps all but the last byte.
	NullTerminated StringMode = iota

	// MaybeNullTerminated fields use the full width unless a zero byte appears.
	MaybeNullTerminated

	// SpacePadded fields are like MaybeNullTerminated, but trailing spaces
	// are also stripped.
	SpacePadded
)

// ReadString reads an n-byte text field.
// The bytes are decoded as DOS code page 437, which is what
// the legacy trackers used for their names and messages.
func (r *Reader) ReadString(n int, mode StringMode) (string, bool) {
	b, ok := r.ReadBytes(n)
	if !ok {
		return "", false
	}
	return FixString(b, mode), true
}

// FixString applies the termination policy to a raw text field.
func FixString(b []byte, mode StringMode) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	} else if mode == NullTerminated && len(b) > 0 {
		b = b[:len(b)-1]
	}
	s := DecodeCP437(b)
	if mode == SpacePadded {
		s = strings.TrimRight(s, " ")
	}
	return s
}

// DecodeCP437 converts code page 437 text into UTF-8.
// Plain ASCII passes through without allocation beyond the result string.
func DecodeCP437(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 || (c < 0x20 && c != '\n' && c != '\r' && c != '\t') {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	out, err := charmap.CodePage437.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

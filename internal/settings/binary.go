// Package settings persists the render configuration.
package settings

import (
	"errors"
	"fmt"
	"strings"
)

const hexDigits = "0123456789ABCDEF"

// EncodeBinary turns b into uppercase hex digits, high nibble first,
// followed by the 8-bit additive checksum of the data.
func EncodeBinary(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b)*2 + 2)
	var sum uint8
	for _, v := range b {
		sb.WriteByte(hexDigits[v>>4])
		sb.WriteByte(hexDigits[v&0x0F])
		sum += v
	}
	sb.WriteByte(hexDigits[sum>>4])
	sb.WriteByte(hexDigits[sum&0x0F])
	return sb.String()
}

// ErrChecksum is returned by DecodeBinary for corrupt data.
var ErrChecksum = errors.New("checksum mismatch")

// DecodeBinary reverses EncodeBinary. Lowercase digits are accepted.
func DecodeBinary(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd length %d", len(s))
	}
	if len(s) < 2 {
		return nil, fmt.Errorf("missing checksum")
	}
	out := make([]byte, 0, len(s)/2-1)
	var sum uint8
	for i := 0; i < len(s); i += 2 {
		hi, ok1 := nibble(s[i])
		lo, ok2 := nibble(s[i+1])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("invalid hex digit at offset %d", i)
		}
		v := hi<<4 | lo
		if i == len(s)-2 {
			if v != sum {
				return nil, fmt.Errorf("%w: got %02X, want %02X", ErrChecksum, v, sum)
			}
			break
		}
		out = append(out, v)
		sum += v
	}
	return out, nil
}

func nibble(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

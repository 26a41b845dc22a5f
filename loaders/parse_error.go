package loaders

import (
	"fmt"
)

// ParseError describes corrupt data found after a loader accepted
// the file header.
type ParseError struct {
	Message string

	Offset int

	// Err is the underlying cause, if any (e.g. song.ErrAllocation).
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (offset=%d)", e.Message, e.Offset)
}

func (e *ParseError) Unwrap() error { return e.Err }

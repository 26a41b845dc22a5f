package song

import (
	"errors"
	"fmt"
)

var (
	// ErrAllocation is reported when a buffer would exceed the size limits.
	// The operation that failed is not committed.
	ErrAllocation = errors.New("allocation failed")

	// ErrNoChange is reported for an edit that would not modify the song.
	ErrNoChange = errors.New("nothing to change")

	ErrInvalidIndex = errors.New("invalid index")
)

// LimitError is a structural constraint violation against the format limits.
type LimitError struct {
	What string
	Min  int
	Max  int
	Got  int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s count %d is out of the valid range [%d, %d]", e.What, e.Got, e.Min, e.Max)
}

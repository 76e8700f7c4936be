package audio

import (
	"fmt"
)

// InsufficientTracksError is returned when an operation gets fewer
// tracks than it needs to do anything meaningful.
type InsufficientTracksError struct {
	Operation string
	Required  int
	Got       int
}

func (e *InsufficientTracksError) Error() string {
	return fmt.Sprintf("%s requires at least %d tracks, but got %d", e.Operation, e.Required, e.Got)
}

// CheckTrackCount returns an *InsufficientTracksError if got < required.
func CheckTrackCount(operation string, required, got int) error {
	if got >= required {
		return nil
	}
	return &InsufficientTracksError{
		Operation: operation,
		Required:  required,
		Got:       got,
	}
}

// ShapeMismatchError means that tracks which are supposed to be aligned
// have different lengths. It is a bug in the preceding stage and the
// data must not be truncated to hide it.
type ShapeMismatchError struct {
	Operation string
	Index     int
	Expected  int
	Got       int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: item #%d has length %d, expected %d", e.Operation, e.Index, e.Got, e.Expected)
}

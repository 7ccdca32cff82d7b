package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the artifact does not exist.
	ErrNotFound = errors.New("kernel: artifact not found")
	// ErrMalformed is returned when the artifact cannot be decoded.
	ErrMalformed = errors.New("kernel: malformed artifact")
)

// IncompatibleError reports an artifact field this build cannot run.
type IncompatibleError struct {
	Field string
	Got   string
	Want  string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("kernel: incompatible %s: got %q, want %q", e.Field, e.Got, e.Want)
}

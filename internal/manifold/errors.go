package manifold

import (
	"errors"
	"fmt"
)

// ErrReleased is returned by every operation after Release.
var ErrReleased = errors.New("manifold: store released")

// ShapeError reports a vector slice whose length does not match count*rank.
type ShapeError struct {
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("manifold: got %d components, want %d", e.Got, e.Want)
}

// CountError reports a negative vector count.
type CountError struct {
	Count int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("manifold: invalid count %d", e.Count)
}

// IndexError reports a row index outside [0, Len).
type IndexError struct {
	Index uint64
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("manifold: index %d out of range [0, %d)", e.Index, e.Len)
}

// AllocError reports a failure to obtain device memory for a new buffer.
type AllocError struct {
	Bytes int64
	Err   error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("manifold: allocating %d bytes: %v", e.Bytes, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

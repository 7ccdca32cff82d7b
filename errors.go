package grainvdb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/grainvdb/internal/device"
	"github.com/hupe1980/grainvdb/internal/kernel"
	"github.com/hupe1980/grainvdb/internal/manifold"
	"github.com/hupe1980/grainvdb/internal/resolver"
)

var (
	// ErrClosed is returned for any call on a closed Context.
	ErrClosed = errors.New("context is closed")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrInvalidCount is returned when an ingest count is negative.
	ErrInvalidCount = errors.New("count must not be negative")

	// ErrDeviceUnavailable is returned when the requested compute backend
	// cannot be opened.
	ErrDeviceUnavailable = errors.New("compute device unavailable")

	// ErrKernelNotFound is returned when the kernel artifact does not exist.
	ErrKernelNotFound = errors.New("kernel artifact not found")
)

// ErrInvalidRank indicates a non-positive dimensionality.
type ErrInvalidRank struct {
	Rank int
}

func (e *ErrInvalidRank) Error() string {
	return fmt.Sprintf("invalid rank: %d", e.Rank)
}

// ErrDimensionMismatch indicates a vector slice whose length does not match
// the Context rank.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrInvalidProbe indicates a probe component that is NaN, infinite, or (for
// Contexts without normalization) beyond the binary16 range. Such a probe
// would produce scores with no defined order.
type ErrInvalidProbe struct {
	Index int
	Value float32
	cause error
}

func (e *ErrInvalidProbe) Error() string {
	return fmt.Sprintf("invalid probe: component %d is %v", e.Index, e.Value)
}

func (e *ErrInvalidProbe) Unwrap() error { return e.cause }

// ErrIndexOutOfRange indicates a row index at or beyond the entry count.
type ErrIndexOutOfRange struct {
	Index uint64
	Len   int
	cause error
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *ErrIndexOutOfRange) Unwrap() error { return e.cause }

// ErrAllocation indicates that device memory for the store could not be
// obtained. The previous store contents are unchanged.
type ErrAllocation struct {
	Bytes int64
	cause error
}

func (e *ErrAllocation) Error() string {
	return fmt.Sprintf("allocation of %d bytes failed: %v", e.Bytes, e.cause)
}

func (e *ErrAllocation) Unwrap() error { return e.cause }

// ErrKernelIncompatible indicates a kernel artifact this build cannot run.
type ErrKernelIncompatible struct {
	Field string
	Got   string
	Want  string
	cause error
}

func (e *ErrKernelIncompatible) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("incompatible kernel artifact: %v", e.cause)
	}
	return fmt.Sprintf("incompatible kernel artifact: %s is %q, want %q", e.Field, e.Got, e.Want)
}

func (e *ErrKernelIncompatible) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, manifold.ErrReleased) || errors.Is(err, device.ErrClosed) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	if errors.Is(err, device.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}
	if errors.Is(err, kernel.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrKernelNotFound, err)
	}
	var ie *kernel.IncompatibleError
	if errors.As(err, &ie) {
		return &ErrKernelIncompatible{Field: ie.Field, Got: ie.Got, Want: ie.Want, cause: err}
	}
	if errors.Is(err, kernel.ErrMalformed) {
		return &ErrKernelIncompatible{cause: err}
	}

	var se *manifold.ShapeError
	if errors.As(err, &se) {
		return &ErrDimensionMismatch{Expected: se.Want, Actual: se.Got, cause: err}
	}
	var ce *manifold.CountError
	if errors.As(err, &ce) {
		return fmt.Errorf("%w: %w", ErrInvalidCount, err)
	}
	var xe *manifold.IndexError
	if errors.As(err, &xe) {
		return &ErrIndexOutOfRange{Index: xe.Index, Len: xe.Len, cause: err}
	}
	var ae *manifold.AllocError
	if errors.As(err, &ae) {
		return &ErrAllocation{Bytes: ae.Bytes, cause: ae.Err}
	}
	var pe *resolver.ProbeError
	if errors.As(err, &pe) {
		return &ErrInvalidProbe{Index: pe.Index, Value: pe.Value, cause: err}
	}
	if errors.Is(err, resolver.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	return err
}

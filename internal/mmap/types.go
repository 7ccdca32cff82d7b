package mmap

import "errors"

// AccessPattern is an advisory hint about how mapped memory will be read.
type AccessPattern int

const (
	// AccessDefault leaves the kernel defaults untouched.
	AccessDefault AccessPattern = iota
	// AccessSequential announces front-to-back scans (the fold kernel).
	AccessSequential
	// AccessRandom announces scattered row reads (the auditor).
	AccessRandom
	// AccessWillNeed asks the kernel to fault pages in ahead of use.
	AccessWillNeed
	// AccessDontNeed allows the kernel to drop the pages.
	AccessDontNeed
)

var (
	// ErrClosed is returned when a closed mapping is accessed.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for negative or oversized lengths.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrInvalidOffset is returned for negative read offsets.
	ErrInvalidOffset = errors.New("mmap: invalid offset")
)

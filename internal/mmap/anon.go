package mmap

import "sync/atomic"

// Anon is a read-write anonymous mapping.
type Anon struct {
	data   []byte
	closed atomic.Bool
	unmap  func([]byte) error
}

// MapAnon reserves size bytes of zeroed memory outside the Go heap.
// A zero size yields an empty, valid mapping.
func MapAnon(size int) (*Anon, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if size == 0 {
		return &Anon{}, nil
	}

	data, unmap, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Anon{data: data, unmap: unmap}, nil
}

// Bytes returns the mapped memory, or nil once closed.
func (a *Anon) Bytes() []byte {
	if a.closed.Load() {
		return nil
	}
	return a.data
}

// Len returns the mapping length in bytes.
func (a *Anon) Len() int { return len(a.data) }

// Advise passes an access hint for the whole mapping.
func (a *Anon) Advise(pattern AccessPattern) error {
	if a.closed.Load() {
		return ErrClosed
	}
	return osAdvise(a.data, pattern)
}

// Close releases the mapping. Subsequent calls are no-ops.
func (a *Anon) Close() error {
	if a.closed.Swap(true) {
		return nil
	}
	if a.unmap == nil || a.data == nil {
		return nil
	}
	err := a.unmap(a.data)
	a.data = nil
	return err
}

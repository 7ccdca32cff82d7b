package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist. It aliases
// os.ErrNotExist so local lookups need no translation.
var ErrNotFound = os.ErrNotExist

// BlobStore reads and writes immutable blobs.
// Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only handle to a blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the blob length in bytes.
	Size() int64
}

// NewReader returns a sequential reader over the whole blob.
func NewReader(b Blob) io.Reader {
	return io.NewSectionReader(b, 0, b.Size())
}

// ReadAll opens name and reads it completely. wrap, if not nil, decorates
// the sequential reader (for example with an IO throttle).
func ReadAll(ctx context.Context, s BlobStore, name string, wrap func(io.Reader) io.Reader) ([]byte, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	r := NewReader(b)
	if wrap != nil {
		r = wrap(r)
	}

	return io.ReadAll(r)
}

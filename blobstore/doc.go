// Package blobstore abstracts where kernel artifacts are read from.
//
// A context locates its compiled kernel through a BlobStore: the local file
// system by default, or an object store for fleets that publish artifacts
// centrally.
//
// # Built-in Implementations
//
//   - LocalStore: local file system, read through a read-only mmap
//   - MemoryStore: in-process map, for tests and embedded artifacts
//   - s3.Store: Amazon S3 (aws-sdk-go-v2)
//   - minio.Store: MinIO and other S3-compatible services (minio-go)
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	}
//
// Open must return an error satisfying errors.Is(err, ErrNotFound) for
// missing blobs.
package blobstore

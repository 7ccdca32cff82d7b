// Package manifold owns the device-visible buffer of half-precision rows.
//
// The buffer is a single anonymous mapping of Len()*Rank() binary16 values
// in row-major order. Ingest replaces the whole buffer: the new mapping is
// filled completely before it is swapped in under the write lock, so
// readers observe either the old or the new contents, never a mix.
package manifold

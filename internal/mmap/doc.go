// Package mmap provides the memory mappings behind device buffers and local
// kernel artifacts.
//
// Two kinds of mapping exist:
//
//   - Anon: a read-write anonymous mapping outside the Go heap. The manifold
//     keeps its half-precision vectors here so a buffer's lifetime is tied to
//     an explicit Close rather than to the garbage collector.
//   - Mapping: a read-only view of a file, used to read artifacts without
//     copying them through the page cache.
//
// Unix systems use mmap(2)/madvise(2); Windows uses VirtualAlloc and
// MapViewOfFile (advice is a no-op there).
//
// Close is idempotent on both types. Slices returned by Bytes must not be
// used after Close.
package mmap

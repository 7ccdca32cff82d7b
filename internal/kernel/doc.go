// Package kernel loads compiled fold-kernel artifacts and turns them into
// executable pipelines.
//
// An artifact is a small JSON manifest describing the fold entry point, its
// ABI revision, storage and accumulation precision and the preferred
// workgroup size. It may be stored raw, zstd-framed or lz4-framed; the
// framing is detected from the leading magic bytes.
//
// Compile binds a validated artifact to a device ISA and yields a Pipeline
// whose Fold method scores every stored row against one probe.
package kernel

// Package grainvdb provides exhaustive dot-product similarity search over a
// half-precision vector store, plus a pairwise coherence audit for result
// sets.
//
// # Quick Start
//
//	ctx := context.Background()
//	c, err := grainvdb.Open(ctx, 128, "fold-v1.gvk")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	_ = c.Ingest(ctx, vectors, len(vectors)/128)   // replaces the store
//	res, _ := c.Resolve(ctx, probe, 10)           // top-10 by dot product
//	score, _ := c.Audit(ctx, res.Indices())       // coherence in [0, 1]
//
// # Pipeline
//
// A Context owns one compute device, one compiled fold kernel and one
// store. Ingest encodes every component to IEEE 754 binary16 (package half)
// into a freshly mapped buffer and swaps it in, replacing whatever was
// stored before. Resolve encodes the probe, dispatches one work item per
// stored row (accumulating in float32) and keeps the k best rows in a
// bounded min-heap. Audit decodes the requested rows on the host and
// aggregates their pairwise dot products.
//
// Scores are raw dot products. Normalize vectors before ingestion, or open
// the Context WithNormalize(true), to get cosine similarity.
//
// # Kernel Artifacts
//
// The fold kernel is described by an artifact produced offline with
//
//	grainvdb kernel build -o fold-v1.gvk
//
// Artifacts are read through a blobstore.BlobStore, so they may live on
// local disk, in S3 or in MinIO (see WithArtifactStore). A missing artifact
// fails Open with ErrKernelNotFound; an artifact built for another ABI
// fails with *ErrKernelIncompatible. Resolve never fails because of the
// kernel.
//
// # Audit
//
// The default audit variant is AuditDensity: the fraction of index pairs
// whose dot product exceeds DefaultAuditThreshold (0.85, configurable with
// WithAuditThreshold). AuditMeanSimilarity reports the mean pairwise dot
// product instead. Either score is a relative signal and only comparable
// between result sets ingested under the same normalization.
package grainvdb

// Package s3 provides a BlobStore backed by Amazon S3.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "artifacts", "grainvdb/kernels")
//	c, err := grainvdb.Open(ctx, 128, "fold-v1.gvk", grainvdb.WithArtifactStore(store))
//
// Reads use ranged GetObject calls; writes go through the S3 upload manager.
package s3

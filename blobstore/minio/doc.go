// Package minio provides a BlobStore backed by MinIO or any S3-compatible
// object store reachable through the MinIO client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	store := minioblob.NewStore(client, "artifacts", "kernels/")
//	c, err := grainvdb.Open(ctx, 128, "fold-v1.gvk", grainvdb.WithArtifactStore(store))
package minio

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hupe1980/grainvdb/blobstore"
	minioblob "github.com/hupe1980/grainvdb/blobstore/minio"
	s3blob "github.com/hupe1980/grainvdb/blobstore/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// location is a parsed artifact URI.
type location struct {
	scheme   string // "", "s3" or "minio"
	endpoint string // minio only
	bucket   string
	name     string
}

// parseLocation understands
//
//	path/to/fold.gvk
//	s3://bucket/key
//	minio://host:port/bucket/key
func parseLocation(uri string) (location, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return location{name: uri}, nil
	}

	switch scheme {
	case "s3":
		bucket, key, ok := strings.Cut(rest, "/")
		if !ok || bucket == "" || key == "" {
			return location{}, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", uri)
		}
		return location{scheme: scheme, bucket: bucket, name: key}, nil
	case "minio":
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return location{}, fmt.Errorf("invalid minio location %q: want minio://host:port/bucket/key", uri)
		}
		return location{scheme: scheme, endpoint: parts[0], bucket: parts[1], name: parts[2]}, nil
	default:
		return location{}, fmt.Errorf("unsupported scheme %q", scheme)
	}
}

// openStore returns the blob store serving loc.
//
// S3 uses the default AWS credential chain. MinIO reads MINIO_ACCESS_KEY and
// MINIO_SECRET_KEY (or MINIO_ROOT_USER/MINIO_ROOT_PASSWORD) and connects over
// TLS unless MINIO_INSECURE is set.
func openStore(ctx context.Context, loc location) (blobstore.BlobStore, error) {
	switch loc.scheme {
	case "s3":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return s3blob.NewStore(s3.NewFromConfig(cfg), loc.bucket, ""), nil
	case "minio":
		client, err := minio.New(loc.endpoint, &minio.Options{
			Creds:  credentials.NewEnvMinio(),
			Secure: os.Getenv("MINIO_INSECURE") == "",
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return minioblob.NewStore(client, loc.bucket, ""), nil
	default:
		return blobstore.NewLocalStore(""), nil
	}
}

package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSBackend is the alternate BlobStore backend, adapted directly from
// the teacher's cmd/wxingest/storage.go GCSBackend: a thin wrapper over
// a bucket handle, reading its service-account credentials from an
// environment variable rather than the default filesystem location so
// container deployments can inject them as a secret.
type GCSBackend struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

// NewGCSBackend constructs a backend against bucketName, reading
// credentials JSON from the SKYWX_GCS_CREDENTIALS environment variable.
func NewGCSBackend(ctx context.Context, bucketName string) (*GCSBackend, error) {
	credsJSON := os.Getenv("SKYWX_GCS_CREDENTIALS")
	if credsJSON == "" {
		return nil, fmt.Errorf("SKYWX_GCS_CREDENTIALS environment variable not set")
	}

	client, err := storage.NewClient(ctx, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, err
	}

	return &GCSBackend{client: client, bucket: client.Bucket(bucketName)}, nil
}

func (g *GCSBackend) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	w := g.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = metadata
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSBackend) HeadBucket(ctx context.Context) bool {
	_, err := g.bucket.Attrs(ctx)
	return err == nil
}

func (g *GCSBackend) Close() error { return g.client.Close() }

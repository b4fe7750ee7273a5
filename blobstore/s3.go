package blobstore

import (
	"bytes"
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Backend is the primary BlobStore backend, grounded on the teacher's
// GCSBackend shape but wired to AWS S3 (aws-sdk-go-v2), since the
// speed-layer/raw-data prefixes map directly onto S3's flat key
// namespace and PutObject/HeadBucket APIs.
type S3Backend struct {
	client *s3.Client
	bucket string
}

// NewS3Backend constructs a backend against bucket. If
// SKYWX_AWS_ACCESS_KEY_ID/SKYWX_AWS_SECRET_ACCESS_KEY are both set it
// uses those as static credentials (for container deployments that
// inject a scoped upload-only key rather than relying on the ambient
// IMDS/shared-config role, mirroring GCSBackend's
// SKYWX_GCS_CREDENTIALS pattern); otherwise it falls back to the
// default AWS config credential chain (environment, shared config,
// IMDS).
func NewS3Backend(ctx context.Context, bucket string) (*S3Backend, error) {
	var opts []func(*config.LoadOptions) error
	if id, secret := os.Getenv("SKYWX_AWS_ACCESS_KEY_ID"), os.Getenv("SKYWX_AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &S3Backend{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

func (s *S3Backend) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	return err
}

// PutMirror implements ArchiveMirror: the raw-archive msgpack+zstd side
// object gets the same bucket but its own content type.
func (s *S3Backend) PutMirror(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-msgpack+zstd"),
	})
	return err
}

func (s *S3Backend) HeadBucket(ctx context.Context) bool {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err == nil
}

func (s *S3Backend) Close() error { return nil }

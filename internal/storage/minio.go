package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOClient wraps a MinIO client with bucket-scoped operations.
type MinIOClient struct {
	client   *minio.Client
	endpoint string
}

// NewMinIOClient creates a MinIO client and ensures the given buckets exist.
func NewMinIOClient(endpoint, accessKey, secretKey string, buckets ...string) (*MinIOClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: false,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}

	ctx := context.Background()
	for _, bucket := range buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("minio bucket check: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("minio make bucket: %w", err)
			}
		}
	}

	return &MinIOClient{
		client:   client,
		endpoint: endpoint,
	}, nil
}

// Endpoint returns the storage host this client talks to.
func (m *MinIOClient) Endpoint() string {
	return m.endpoint
}

// Upload stores an object in the bucket.
func (m *MinIOClient) Upload(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// PublicURL returns the unauthenticated URL for an object.
func (m *MinIOClient) PublicURL(bucket, key string) string {
	return fmt.Sprintf("http://%s/%s/%s", m.endpoint, bucket, key)
}

// SignURL issues a time-bounded presigned GET URL for an object. The object
// must exist; signing a missing key returns an error rather than a dead URL.
func (m *MinIOClient) SignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if _, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		return "", fmt.Errorf("minio stat %s/%s: %w", bucket, key, err)
	}
	u, err := m.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("minio presign %s/%s: %w", bucket, key, err)
	}
	return u.String(), nil
}

// Delete removes an object from the bucket.
func (m *MinIOClient) Delete(ctx context.Context, bucket, key string) error {
	return m.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
}

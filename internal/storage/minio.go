// Package storage keeps shared documents, such as the demo profile, in an
// S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/smartfill/smartfill/internal/config"
)

// MinIOClient wraps the MinIO client
type MinIOClient struct {
	client     *minio.Client
	bucketName string
}

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(cfg config.S3Config) (*MinIOClient, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &MinIOClient{
		client:     client,
		bucketName: cfg.Bucket,
	}, nil
}

// Bucket returns the configured bucket name
func (m *MinIOClient) Bucket() string {
	return m.bucketName
}

// EnsureBucket creates the bucket if it doesn't exist
func (m *MinIOClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return fmt.Errorf("checking bucket existence: %w", err)
	}

	if !exists {
		err = m.client.MakeBucket(ctx, m.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("creating bucket: %w", err)
		}
	}

	return nil
}

// UploadJSON uploads a JSON document and returns its S3 URI
func (m *MinIOClient) UploadJSON(ctx context.Context, key string, data []byte) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("uploading object: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", m.bucketName, key), nil
}

// Download downloads an object from the bucket
func (m *MinIOClient) Download(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

// Health checks that the bucket is reachable
func (m *MinIOClient) Health(ctx context.Context) error {
	if _, err := m.client.BucketExists(ctx, m.bucketName); err != nil {
		return fmt.Errorf("minio health: %w", err)
	}
	return nil
}

// ObjectSource serves one bucket object as the demo profile document.
type ObjectSource struct {
	client *MinIOClient
	key    string
}

// NewObjectSource returns a source reading key from the client's bucket
func NewObjectSource(client *MinIOClient, key string) *ObjectSource {
	return &ObjectSource{client: client, key: key}
}

// Fetch downloads the object
func (s *ObjectSource) Fetch(ctx context.Context) ([]byte, error) {
	return s.client.Download(ctx, s.key)
}

// Seed uploads data as the source object, creating the bucket first
func (s *ObjectSource) Seed(ctx context.Context, data []byte) error {
	if err := s.client.EnsureBucket(ctx); err != nil {
		return err
	}
	_, err := s.client.UploadJSON(ctx, s.key, data)
	return err
}

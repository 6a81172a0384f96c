package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrObjectNotFound is returned when a rendered graphic is not in the bucket.
var ErrObjectNotFound = errors.New("object not found")

const pngContentType = "image/png"

// Storage writes rendered graphics to an S3-compatible bucket using MinIO.
// Objects are immutable once written: every render has its own key.
type Storage struct {
	client     *minio.Client
	bucketName string
}

// NewStorage creates a new Storage instance connected to the specified MinIO server.
// If the bucket does not exist, it will be created automatically.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*Storage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &Storage{
		client:     client,
		bucketName: bucketName,
	}, nil
}

// SavePNG uploads PNG bytes as subdir/filename with the given user metadata
// and returns the object path within the bucket.
func (s *Storage) SavePNG(ctx context.Context, subdir, filename string, data []byte, meta map[string]string) (string, error) {
	objectName := path.Join(subdir, filename)

	_, err := s.client.PutObject(ctx, s.bucketName, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  pngContentType,
		CacheControl: "public, max-age=31536000, immutable",
		UserMetadata: meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to save %s: %w", objectName, err)
	}

	return objectName, nil
}

// Load returns a reader for the object at objectPath.
func (s *Storage) Load(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, objectPath, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", objectPath, err)
	}

	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, translate(objectPath, err)
	}

	return obj, nil
}

// Delete removes the object at objectPath.
func (s *Storage) Delete(ctx context.Context, objectPath string) error {
	if _, err := s.client.StatObject(ctx, s.bucketName, objectPath, minio.StatObjectOptions{}); err != nil {
		return translate(objectPath, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, objectPath, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", objectPath, err)
	}

	return nil
}

func translate(objectPath string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}

	return fmt.Errorf("failed to stat %s: %w", objectPath, err)
}

package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/dline-edu/prova-backend/internal/config"
)

// MinioStore is the MinIO-backed BlobStore implementation.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore wraps an initialized MinIO client as a BlobStore.
func NewMinioStore(client *minio.Client, cfg *config.Config) *MinioStore {
	baseURL := cfg.MediaBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.MinioUseSSL {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.MinioEndpoint, cfg.MinioBucket)
	}
	return &MinioStore{
		client:  client,
		bucket:  cfg.MinioBucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put uploads the payload under objectName and returns its retrieval URL.
func (s *MinioStore) Put(ctx context.Context, objectName string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", objectName, err)
	}
	return s.URL(objectName), nil
}

// Remove deletes an object. Used only by the orphan reconciler.
func (s *MinioStore) Remove(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", objectName, err)
	}
	return nil
}

// URL returns the stable retrieval URL for an object name.
func (s *MinioStore) URL(objectName string) string {
	return s.baseURL + "/" + objectName
}

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/RMahshie/emav/internal/config"
)

const (
	uploadURLExpiry   = 15 * time.Minute
	downloadURLExpiry = 24 * time.Hour
)

// FileStore handles Universal File storage operations
type FileStore interface {
	EnsureBucket(ctx context.Context) error
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	UploadFile(ctx context.Context, key string, data []byte, contentType string) error
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// New builds the FileStore selected by cfg.Backend
func New(cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinioStore(MinioConfig{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKeyID,
			SecretKey: cfg.SecretAccessKey,
			UseSSL:    cfg.UseSSL,
		})
	case "s3", "":
		return NewS3Service(S3Config{
			Bucket:    cfg.Bucket,
			Endpoint:  cfg.Endpoint,
			Region:    cfg.Region,
			AccessKey: cfg.AccessKeyID,
			SecretKey: cfg.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// validateContentType validates that the content type is supported
func validateContentType(contentType string) error {
	validTypes := map[string]bool{
		"text/plain":               true,
		"application/octet-stream": true,
	}

	if !validTypes[contentType] {
		return fmt.Errorf("invalid content type: %s. Supported types: text/plain, application/octet-stream", contentType)
	}

	return nil
}

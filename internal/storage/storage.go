// Package storage keeps recordings and rendered plots in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"time"
)

const (
	UploadURLExpiry   = 15 * time.Minute
	DownloadURLExpiry = 24 * time.Hour
)

// ArtifactStore handles recording uploads and plot artifacts
type ArtifactStore interface {
	UploadFile(ctx context.Context, key string, data []byte, contentType string) error
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DownloadFile(ctx context.Context, key string) ([]byte, error)
	DeleteFile(ctx context.Context, key string) error
}

// Config holds connection settings shared by both backends
type Config struct {
	Backend   string
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New builds the store selected by cfg.Backend
func New(ctx context.Context, cfg Config) (ArtifactStore, error) {
	switch cfg.Backend {
	case "", "s3":
		return NewS3Store(cfg)
	case "minio":
		return NewMinioStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}

var validContentTypes = map[string]bool{
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
}

// ValidateContentType accepts the MIME types WAV recordings are uploaded with
func ValidateContentType(contentType string) error {
	if !validContentTypes[contentType] {
		return fmt.Errorf("invalid content type: %s. Supported types: audio/wav, audio/x-wav, audio/wave", contentType)
	}
	return nil
}

// RecordingKey is where an uploaded recording lives
func RecordingKey(recordingID string) string {
	return fmt.Sprintf("recordings/%s.wav", recordingID)
}

// PlotKey is where a rendered plot for a recording lives
func PlotKey(recordingID, fileName string) string {
	return fmt.Sprintf("plots/%s/%s", recordingID, fileName)
}

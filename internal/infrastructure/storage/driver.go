package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/hszk-dev/gotube/internal/config"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

const (
	DriverMinIO = "minio"
	DriverS3    = "s3"
)

// Store is an ObjectStorage that can report bucket reachability.
type Store interface {
	repository.ObjectStorage
	Ping(ctx context.Context) error
}

// NewFromConfig builds the client for the configured driver.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case DriverS3:
		client, err := NewS3Client(ctx, S3Config{
			AccountID:     cfg.AccountID,
			Endpoint:      s3Endpoint(cfg),
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to S3: %w", err)
		}
		return client, nil
	case DriverMinIO, "":
		client, err := NewClient(ctx, ClientConfig{
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			Bucket:        cfg.Bucket,
			UseSSL:        cfg.UseSSL,
			PublicBaseURL: cfg.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// s3Endpoint drops the MinIO-style host:port so an R2 account id can pick
// the endpoint. A bare host gets a scheme.
func s3Endpoint(cfg config.StorageConfig) string {
	switch {
	case cfg.AccountID != "", cfg.Endpoint == "":
		return ""
	case strings.Contains(cfg.Endpoint, "://"):
		return cfg.Endpoint
	case cfg.UseSSL:
		return "https://" + cfg.Endpoint
	default:
		return "http://" + cfg.Endpoint
	}
}

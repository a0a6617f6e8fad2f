// Package storage keeps exported thread-dump reports outside the report
// store, either in a local directory or in a Tencent Cloud COS bucket.
//
// Artifacts are addressed by keys of the form
// <prefix>/<report-id>/report<format-ext><compression-ext>, see ReportKey.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/thread-dump-analysis/pkg/compression"
	"github.com/thread-dump-analysis/pkg/config"
)

// ErrObjectNotFound is returned when no report artifact exists under a key.
var ErrObjectNotFound = errors.New("report artifact not found")

// Storage is a flat key space of report artifacts. Keys use '/' separators
// regardless of backend.
type Storage interface {
	// Upload writes an artifact, replacing any previous one under key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download opens an artifact; a missing key yields ErrObjectNotFound.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes an artifact. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether an artifact is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL is where a user can fetch the artifact: a bucket URL or a file path.
	GetURL(key string) string
}

// Backend names a Storage implementation in StorageConfig.Type.
type Backend string

const (
	BackendLocal Backend = "local"
	BackendCOS   Backend = "cos"
)

// NewStorage opens the backend selected by cfg.Type.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if Backend(cfg.Type) == BackendCOS {
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	}
	return NewLocalStorage(cfg.LocalPath)
}

// ValidateConfig checks that the selected backend has what it needs and that
// the export compression and key prefix are usable.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	backend := Backend(cfg.Type)
	if backend == "" {
		backend = BackendLocal
	}

	switch backend {
	case BackendCOS:
		switch {
		case cfg.Bucket == "":
			return fmt.Errorf("report export to COS needs a bucket")
		case cfg.Region == "":
			return fmt.Errorf("report export to COS needs a region")
		case cfg.SecretID == "" || cfg.SecretKey == "":
			return fmt.Errorf("report export to COS needs secret_id and secret_key")
		}
	case BackendLocal:
		if cfg.LocalPath == "" {
			return fmt.Errorf("report export to a local directory needs local_path")
		}
	default:
		return fmt.Errorf("unsupported report storage backend: %s", cfg.Type)
	}

	if _, err := compression.ParseType(cfg.Compression); err != nil {
		return err
	}
	if _, err := cleanPrefix(cfg.Prefix); err != nil {
		return err
	}
	return nil
}

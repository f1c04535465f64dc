// Package storage provides durable blob operations keyed by slash-separated names,
// backed by Azure Blob Storage, the local filesystem, or process memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JaimeStill/orator/pkg/lifecycle"
)

var (
	// ErrNotFound indicates no object exists at the key.
	ErrNotFound = errors.New("object not found")
	// ErrEmptyKey indicates an empty key.
	ErrEmptyKey = errors.New("object key must not be empty")
	// ErrInvalidKey indicates a key that is absolute or escapes the tenant prefix.
	ErrInvalidKey = errors.New("object key contains invalid path segment")
	// ErrUnknownProvider indicates the configured provider is not supported.
	ErrUnknownProvider = errors.New("unknown storage provider")
)

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that prepares the backing container or directory.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to the blob at key, replacing any previous content.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the blob at key. The caller must close the reader.
	// Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob at key. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, key string) error
	// Exists reports whether a blob exists at key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the keys that start with prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Usage counts the blobs that start with prefix and their total size.
	Usage(ctx context.Context, prefix string) (Usage, error)
}

// Usage is the number and total size of the blobs under a prefix.
type Usage struct {
	Objects int
	Bytes   int64
}

// New creates the storage system selected by cfg.Provider.
// No connection is established until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	logger = logger.With("system", "storage", "provider", cfg.Provider)

	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderLocal:
		return newLocal(cfg.Root, logger), nil
	case ProviderMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}

// Join builds a storage key from path segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return ErrInvalidKey
	}
	return nil
}

// Package cache provides the durable key-value store backing the auth
// pipeline cache. Entries survive process restarts; the store itself knows
// nothing about expiry, which is carried inside the serialized entries.
package cache

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// Common store errors.
var (
	// ErrNotFound indicates that the key was not found in the store.
	ErrNotFound = errors.New("cache entry not found")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")
)

// Store is a durable key-value store. Writes are atomic per entry: a reader
// never observes a partially written value. Cross-process mutual exclusion is
// not provided; last writer wins.
type Store interface {
	// Get retrieves a value from the store.
	// Returns ErrNotFound if the key is not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores a value, overwriting any prior value for the key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes a value from the store.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}

// New creates a durable store based on the configuration. A disabled cache
// yields a nil Store; callers treat nil as "caching off".
func New(cfg *config.CacheConfig, logger observability.Logger) (Store, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig
	}

	if !cfg.Enabled {
		return nil, nil
	}

	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Type {
	case config.CacheTypeFile, "":
		return newFileStore(cfg.File, logger)
	case config.CacheTypeRedis:
		return newRedisStore(cfg.Redis, logger)
	default:
		return nil, errors.New("unknown cache type: " + cfg.Type)
	}
}

// tracerName is the OpenTelemetry tracer name for store operations.
const tracerName = "searchads-tap/cache"

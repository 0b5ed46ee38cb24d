package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// fileStore persists one file per key inside a pre-existing directory.
// Writes go through a temp file and rename, so a concurrent reader sees
// either the old entry or the new one, never a torn write.
type fileStore struct {
	logger observability.Logger
	dir    string
	prefix string
}

// newFileStore creates a file-backed store. The directory must already
// exist; a missing cache directory is a configuration error, not something
// to paper over by creating it.
func newFileStore(cfg *config.FileCacheConfig, logger observability.Logger) (*fileStore, error) {
	if cfg == nil || cfg.Directory == "" {
		return nil, fmt.Errorf("%w: file cache requires a directory", ErrInvalidConfig)
	}

	info, err := os.Stat(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("%w: cache directory %q does not exist", ErrInvalidConfig, cfg.Directory)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: cache path %q is not a directory", ErrInvalidConfig, cfg.Directory)
	}

	name := cfg.Name
	if name == "" {
		name = config.DefaultCacheFileName
	}

	s := &fileStore{
		logger: logger,
		dir:    cfg.Directory,
		prefix: name,
	}

	logger.Info("file cache store initialized",
		observability.String("directory", s.dir),
		observability.String("prefix", s.prefix))

	return s, nil
}

// entryPath maps a store key to its file path.
func (s *fileStore) entryPath(key string) string {
	return filepath.Join(s.dir, s.prefix+"."+sanitizeKey(key)+".json")
}

// sanitizeKey replaces characters that are unsafe in file names.
func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		":", "_",
		"/", "_",
		string(filepath.Separator), "_",
		" ", "_",
	)
	return replacer.Replace(key)
}

// Get retrieves a value from the store.
func (s *fileStore) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", "file"),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	data, err := os.ReadFile(s.entryPath(key)) //nolint:gosec // path derives from a sanitized key
	if err != nil {
		if os.IsNotExist(err) {
			storeMisses.WithLabelValues("file").Inc()
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, ErrNotFound
		}
		storeErrors.WithLabelValues("file", "get").Inc()
		return nil, fmt.Errorf("failed to read cache entry %q: %w", key, err)
	}

	storeHits.WithLabelValues("file").Inc()
	span.SetAttributes(
		attribute.Bool("cache.hit", true),
		attribute.Int("cache.value_size", len(data)),
	)

	s.logger.Debug("cache hit",
		observability.String("key", key),
		observability.Int("size", len(data)))

	return data, nil
}

// Put stores a value, overwriting any prior value for the key.
func (s *fileStore) Put(ctx context.Context, key string, value []byte) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "cache.Put",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", "file"),
			attribute.String("cache.key", key),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()

	path := s.entryPath(key)

	tmp, err := os.CreateTemp(s.dir, s.prefix+".*.tmp")
	if err != nil {
		storeErrors.WithLabelValues("file", "put").Inc()
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		storeErrors.WithLabelValues("file", "put").Inc()
		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		storeErrors.WithLabelValues("file", "put").Inc()
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		storeErrors.WithLabelValues("file", "put").Inc()
		return fmt.Errorf("failed to store cache entry %q: %w", key, err)
	}

	s.logger.Debug("cache set",
		observability.String("key", key),
		observability.Int("size", len(value)))

	return nil
}

// Delete removes a value from the store.
func (s *fileStore) Delete(ctx context.Context, key string) error {
	_, span := otel.Tracer(tracerName).Start(ctx, "cache.Delete",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("cache.backend", "file"),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	err := os.Remove(s.entryPath(key))
	if err != nil && !os.IsNotExist(err) {
		storeErrors.WithLabelValues("file", "delete").Inc()
		return fmt.Errorf("failed to delete cache entry %q: %w", key, err)
	}

	return nil
}

// Close is a no-op for the file store.
func (s *fileStore) Close() error {
	return nil
}

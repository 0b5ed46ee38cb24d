package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/searchads-tap/internal/config"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// redisStore implements Store on Redis. Useful when several tap workers
// share one auth cache instead of a local directory.
type redisStore struct {
	logger    observability.Logger
	client    *redis.Client
	keyPrefix string
}

// newRedisStore creates a Redis-backed store and verifies connectivity.
func newRedisStore(cfg *config.RedisCacheConfig, logger observability.Logger) (*redisStore, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("%w: redis cache requires a URL", ErrInvalidConfig)
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %v", ErrInvalidConfig, err)
	}

	if cfg.ConnectTimeout > 0 {
		opts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	client := redis.NewClient(opts)

	if err := pingRedis(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "searchads-tap:"
	}

	s := &redisStore{
		logger:    logger,
		client:    client,
		keyPrefix: keyPrefix,
	}

	logger.Info("redis cache store initialized",
		observability.String("keyPrefix", keyPrefix))

	return s, nil
}

// pingRedis tests the Redis connection with a timeout.
func pingRedis(client *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// Get retrieves a value from the store.
func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Get",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", "redis"),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err == nil {
		storeHits.WithLabelValues("redis").Inc()
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.Int("cache.value_size", len(val)),
		)
		s.logger.Debug("cache hit",
			observability.String("key", key),
			observability.Int("size", len(val)))
		return val, nil
	}

	if errors.Is(err, redis.Nil) {
		storeMisses.WithLabelValues("redis").Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrNotFound
	}

	storeErrors.WithLabelValues("redis", "get").Inc()
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	s.logger.Error("redis get failed",
		observability.String("key", key),
		observability.Error(err))
	return nil, err
}

// Put stores a value, overwriting any prior value for the key. Entries
// carry their own expiry, so no Redis TTL is applied.
func (s *redisStore) Put(ctx context.Context, key string, value []byte) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Put",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", "redis"),
			attribute.String("cache.key", key),
			attribute.Int("cache.value_size", len(value)),
		),
	)
	defer span.End()

	if err := s.client.Set(ctx, s.keyPrefix+key, value, 0).Err(); err != nil {
		storeErrors.WithLabelValues("redis", "put").Inc()
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		s.logger.Error("redis set failed",
			observability.String("key", key),
			observability.Error(err))
		return err
	}

	s.logger.Debug("cache set",
		observability.String("key", key),
		observability.Int("size", len(value)))

	return nil
}

// Delete removes a value from the store.
func (s *redisStore) Delete(ctx context.Context, key string) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cache.Delete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.backend", "redis"),
			attribute.String("cache.key", key),
		),
	)
	defer span.End()

	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		storeErrors.WithLabelValues("redis", "delete").Inc()
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return err
	}

	return nil
}

// Close closes the Redis connection.
func (s *redisStore) Close() error {
	return s.client.Close()
}

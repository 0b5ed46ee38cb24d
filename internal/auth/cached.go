package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vyrodovalexey/searchads-tap/internal/cache"
	"github.com/vyrodovalexey/searchads-tap/internal/observability"
)

// Stable cache keys, one per stage kind. The latest entry for a key always
// overwrites the previous one, so at most one entry exists per stage.
const (
	secretCacheKey  = "auth:client_secret"
	tokenCacheKey   = "auth:access_token"
	headersCacheKey = "auth:request_headers"
)

// Stage labels for cache metrics.
const (
	stageSecret  = "client_secret"
	stageToken   = "access_token"
	stageHeaders = "request_headers"
)

// entry is the serialized envelope persisted to the durable store. The
// expiry is duplicated outside the value so freshness can be judged
// without knowing the value's concrete type.
type entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// lookup returns the cached value for key if a live entry exists. Any
// read or decode failure is treated as a miss: the cache is an
// optimization and must never invalidate a valid pipeline.
func lookup[V any](
	ctx context.Context, store cache.Store, key, stage string, now time.Time, logger observability.Logger,
) (V, bool) {
	var zero V

	data, err := store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("cache read failed, recomputing",
				observability.String("key", key),
				observability.Error(err))
		}
		stageCacheMisses.WithLabelValues(stage).Inc()
		return zero, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		logger.Warn("malformed cache entry, recomputing",
			observability.String("key", key),
			observability.Error(err))
		stageCacheMisses.WithLabelValues(stage).Inc()
		return zero, false
	}

	if !e.ExpiresAt.After(now) {
		logger.Debug("cache entry expired",
			observability.String("key", key),
			observability.Time("expiresAt", e.ExpiresAt))
		stageCacheMisses.WithLabelValues(stage).Inc()
		return zero, false
	}

	var value V
	if err := json.Unmarshal(e.Value, &value); err != nil {
		logger.Warn("malformed cache value, recomputing",
			observability.String("key", key),
			observability.Error(err))
		stageCacheMisses.WithLabelValues(stage).Inc()
		return zero, false
	}

	stageCacheHits.WithLabelValues(stage).Inc()
	return value, true
}

// persist stores a freshly computed value, overwriting any prior entry for
// the key. Write failures are logged and swallowed for the same reason
// read failures are: a broken cache must not break a valid run.
func persist[V any](
	ctx context.Context, store cache.Store, key string, value V, expiresAt time.Time, logger observability.Logger,
) {
	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("failed to encode cache value",
			observability.String("key", key),
			observability.Error(err))
		return
	}

	data, err := json.Marshal(entry{
		Key:       key,
		Value:     raw,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		logger.Warn("failed to encode cache entry",
			observability.String("key", key),
			observability.Error(err))
		return
	}

	if err := store.Put(ctx, key, data); err != nil {
		logger.Warn("cache write failed",
			observability.String("key", key),
			observability.Error(err))
	}
}

// cachedSecretSource decorates a SecretSource with durable caching.
type cachedSecretSource struct {
	inner  SecretSource
	store  cache.Store
	logger observability.Logger
}

// newCachedSecretSource wraps a secret source with the durable store.
func newCachedSecretSource(inner SecretSource, store cache.Store, logger observability.Logger) SecretSource {
	return &cachedSecretSource{inner: inner, store: store, logger: logger}
}

// ClientSecret returns the cached secret when live, otherwise signs a
// fresh one and persists it.
func (c *cachedSecretSource) ClientSecret(ctx context.Context, now time.Time) (SignedSecret, error) {
	if secret, ok := lookup[SignedSecret](ctx, c.store, secretCacheKey, stageSecret, now, c.logger); ok {
		return secret, nil
	}

	secret, err := c.inner.ClientSecret(ctx, now)
	if err != nil {
		return SignedSecret{}, err
	}

	persist(ctx, c.store, secretCacheKey, secret, secret.ExpiresAt, c.logger)
	return secret, nil
}

// cachedTokenSource decorates a TokenSource with durable caching. A live
// cached token short-circuits everything upstream: the secret source is
// never consulted on a hit.
type cachedTokenSource struct {
	inner  TokenSource
	store  cache.Store
	logger observability.Logger
}

// newCachedTokenSource wraps a token source with the durable store.
func newCachedTokenSource(inner TokenSource, store cache.Store, logger observability.Logger) TokenSource {
	return &cachedTokenSource{inner: inner, store: store, logger: logger}
}

// AccessToken returns the cached token when live, otherwise exchanges a
// fresh one and persists it. A failed exchange writes nothing.
func (c *cachedTokenSource) AccessToken(ctx context.Context, now time.Time) (AccessToken, error) {
	if token, ok := lookup[AccessToken](ctx, c.store, tokenCacheKey, stageToken, now, c.logger); ok {
		return token, nil
	}

	token, err := c.inner.AccessToken(ctx, now)
	if err != nil {
		return AccessToken{}, err
	}

	persist(ctx, c.store, tokenCacheKey, token, token.ExpiresAt, c.logger)
	return token, nil
}

// cachedHeaderSource decorates a HeaderSource with durable caching.
type cachedHeaderSource struct {
	inner  HeaderSource
	store  cache.Store
	logger observability.Logger
}

// newCachedHeaderSource wraps a header source with the durable store.
func newCachedHeaderSource(inner HeaderSource, store cache.Store, logger observability.Logger) HeaderSource {
	return &cachedHeaderSource{inner: inner, store: store, logger: logger}
}

// RequestHeaders returns the cached headers when live, otherwise builds
// fresh ones and persists them with the token-inherited expiry.
func (c *cachedHeaderSource) RequestHeaders(ctx context.Context, now time.Time) (RequestHeaders, error) {
	if headers, ok := lookup[RequestHeaders](ctx, c.store, headersCacheKey, stageHeaders, now, c.logger); ok {
		return headers, nil
	}

	headers, err := c.inner.RequestHeaders(ctx, now)
	if err != nil {
		return RequestHeaders{}, err
	}

	persist(ctx, c.store, headersCacheKey, headers, headers.ExpiresAt, c.logger)
	return headers, nil
}

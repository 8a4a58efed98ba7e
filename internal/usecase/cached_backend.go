package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/cache"
	"github.com/hszk-dev/streamgate/internal/infrastructure/metrics"
)

// CachedBackendConfig holds configuration for a cached backend.
type CachedBackendConfig struct {
	// CacheTTL is the TTL for cached object metadata.
	CacheTTL time.Duration

	// LookupTimeout bounds a shared metadata lookup, which runs detached from
	// any single caller's context.
	LookupTimeout time.Duration
}

const defaultLookupTimeout = 10 * time.Second

// DefaultCachedBackendConfig returns the default configuration.
func DefaultCachedBackendConfig() CachedBackendConfig {
	return CachedBackendConfig{
		CacheTTL:      5 * time.Minute,
		LookupTimeout: defaultLookupTimeout,
	}
}

// cachedBackend wraps an ObjectBackend with a metadata cache.
// It implements the decorator pattern so the stream service never sees the cache.
type cachedBackend struct {
	delegate repository.ObjectBackend
	cache    cache.ObjectInfoCache
	sfGroup  singleflight.Group

	cacheTTL      time.Duration
	lookupTimeout time.Duration
}

// NewCachedBackend creates a backend whose Metadata calls go through objectCache.
// OpenRange is never cached.
func NewCachedBackend(
	delegate repository.ObjectBackend,
	objectCache cache.ObjectInfoCache,
	cfg CachedBackendConfig,
) repository.ObjectBackend {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = defaultLookupTimeout
	}
	return &cachedBackend{
		delegate:      delegate,
		cache:         objectCache,
		cacheTTL:      cfg.CacheTTL,
		lookupTimeout: cfg.LookupTimeout,
	}
}

func (b *cachedBackend) Kind() model.BackendKind {
	return b.delegate.Kind()
}

// Metadata retrieves object metadata with caching.
// Uses singleflight to prevent a stampede of backend calls when many players
// open the same object at once. The shared lookup does not inherit the
// cancellation of whichever caller started it; each caller stops waiting
// when its own ctx ends.
func (b *cachedBackend) Metadata(ctx context.Context, key string) (*model.ObjectInfo, error) {
	ch := b.sfGroup.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.lookupTimeout)
		defer cancel()
		return b.metadataWithCache(lookupCtx, key)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	result, err, shared := res.Val, res.Err, res.Shared

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	// Copy so callers cannot mutate a value shared with other requests.
	info := *result.(*model.ObjectInfo)
	return &info, nil
}

// metadataWithCache implements the cache-aside pattern.
func (b *cachedBackend) metadataWithCache(ctx context.Context, key string) (*model.ObjectInfo, error) {
	kind := b.delegate.Kind()

	info, err := b.cache.Get(ctx, kind, key)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		// Log cache error but continue to the backend
		slog.Warn("cache get failed, falling back to backend",
			"backend", kind,
			"error", err,
		)
	}

	if info != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
		return info, nil
	}
	if err == nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
	}

	// Errors, including not found, are never cached.
	info, err = b.delegate.Metadata(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := b.cache.Set(ctx, kind, info, b.cacheTTL); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		slog.Warn("failed to cache object metadata",
			"backend", kind,
			"error", err,
		)
	} else {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	}

	return info, nil
}

// OpenRange delegates to the underlying backend. An object that vanished
// since its metadata was cached is evicted so the next request sees a 404
// at resolve time.
func (b *cachedBackend) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	rc, err := b.delegate.OpenRange(ctx, key, start, end)
	if errors.Is(err, repository.ErrObjectNotFound) {
		if derr := b.invalidate(ctx, key); derr != nil {
			slog.Warn("failed to invalidate object metadata",
				"backend", b.delegate.Kind(),
				"error", derr,
			)
		}
	}
	return rc, err
}

// invalidate removes cached metadata for key.
func (b *cachedBackend) invalidate(ctx context.Context, key string) error {
	err := b.cache.Delete(ctx, b.delegate.Kind(), key)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return err
	}
	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpDelete, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

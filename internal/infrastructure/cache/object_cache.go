package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// ObjectInfoCache defines the interface for caching backend object metadata.
// Implementations should handle serialization/deserialization transparently.
type ObjectInfoCache interface {
	// Get retrieves metadata for key on the given backend.
	// Returns nil, nil if the entry is not in cache (cache miss).
	Get(ctx context.Context, kind model.BackendKind, key string) (*model.ObjectInfo, error)

	// Set stores metadata with the specified TTL.
	Set(ctx context.Context, kind model.BackendKind, info *model.ObjectInfo, ttl time.Duration) error

	// Delete removes an entry.
	// Returns nil if the entry was not in cache.
	Delete(ctx context.Context, kind model.BackendKind, key string) error
}

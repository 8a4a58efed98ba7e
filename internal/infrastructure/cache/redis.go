package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

const (
	// objectCacheKeyPrefix is the prefix for object metadata keys in Redis.
	objectCacheKeyPrefix = "object:"
)

// objectInfoJSON is the JSON representation of ObjectInfo for caching.
// Using explicit struct avoids coupling to domain model's JSON tags.
type objectInfoJSON struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// RedisObjectCache implements ObjectInfoCache using Redis as the backing store.
type RedisObjectCache struct {
	client *redis.Client
}

// NewRedisObjectCache creates a new Redis-backed metadata cache.
func NewRedisObjectCache(client *redis.Client) *RedisObjectCache {
	return &RedisObjectCache{
		client: client,
	}
}

// Get retrieves object metadata from Redis cache.
// Returns nil, nil on cache miss.
func (c *RedisObjectCache) Get(ctx context.Context, kind model.BackendKind, key string) (*model.ObjectInfo, error) {
	data, err := c.client.Get(ctx, c.buildKey(kind, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v objectInfoJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("deserialize object info: %w", err)
	}
	if v.Key != key {
		return nil, fmt.Errorf("deserialize object info: key mismatch")
	}

	return &model.ObjectInfo{
		Key:         v.Key,
		Name:        v.Name,
		Size:        v.Size,
		ContentType: v.ContentType,
	}, nil
}

// Set stores object metadata in Redis cache with the specified TTL.
func (c *RedisObjectCache) Set(ctx context.Context, kind model.BackendKind, info *model.ObjectInfo, ttl time.Duration) error {
	data, err := json.Marshal(objectInfoJSON{
		Key:         info.Key,
		Name:        info.Name,
		Size:        info.Size,
		ContentType: info.ContentType,
	})
	if err != nil {
		return fmt.Errorf("serialize object info: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(kind, info.Key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Delete removes object metadata from Redis cache.
func (c *RedisObjectCache) Delete(ctx context.Context, kind model.BackendKind, key string) error {
	if err := c.client.Del(ctx, c.buildKey(kind, key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}

	return nil
}

// Ping verifies the Redis connection.
func (c *RedisObjectCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// buildKey constructs the Redis key for an object on a backend.
func (c *RedisObjectCache) buildKey(kind model.BackendKind, key string) string {
	return objectCacheKeyPrefix + string(kind) + ":" + key
}

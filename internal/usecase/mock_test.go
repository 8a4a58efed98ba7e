package usecase

import (
	"bytes"
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
)

// mockBackend provides a configurable mock for ObjectBackend.
type mockBackend struct {
	kind          model.BackendKind
	metadataFn    func(ctx context.Context, key string) (*model.ObjectInfo, error)
	openRangeFn   func(ctx context.Context, key string, start, end int64) (io.ReadCloser, error)
	metadataCount atomic.Int32
	openCount     atomic.Int32
}

func (m *mockBackend) Kind() model.BackendKind {
	return m.kind
}

func (m *mockBackend) Metadata(ctx context.Context, key string) (*model.ObjectInfo, error) {
	m.metadataCount.Add(1)
	if m.metadataFn != nil {
		return m.metadataFn(ctx, key)
	}
	return &model.ObjectInfo{Key: key, Name: key, Size: 1000, ContentType: "video/mp4"}, nil
}

func (m *mockBackend) OpenRange(ctx context.Context, key string, start, end int64) (io.ReadCloser, error) {
	m.openCount.Add(1)
	if m.openRangeFn != nil {
		return m.openRangeFn(ctx, key, start, end)
	}
	return io.NopCloser(bytes.NewReader(make([]byte, end-start+1))), nil
}

// mockObjectInfoCache is a mock implementation of ObjectInfoCache for testing.
type mockObjectInfoCache struct {
	mu       sync.RWMutex
	data     map[string]*model.ObjectInfo
	getFn    func(ctx context.Context, kind model.BackendKind, key string) (*model.ObjectInfo, error)
	setFn    func(ctx context.Context, kind model.BackendKind, info *model.ObjectInfo, ttl time.Duration) error
	deleteFn func(ctx context.Context, kind model.BackendKind, key string) error
}

func newMockObjectInfoCache() *mockObjectInfoCache {
	return &mockObjectInfoCache{
		data: make(map[string]*model.ObjectInfo),
	}
}

func (m *mockObjectInfoCache) Get(ctx context.Context, kind model.BackendKind, key string) (*model.ObjectInfo, error) {
	if m.getFn != nil {
		return m.getFn(ctx, kind, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[string(kind)+":"+key], nil
}

func (m *mockObjectInfoCache) Set(ctx context.Context, kind model.BackendKind, info *model.ObjectInfo, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, kind, info, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(kind)+":"+info.Key] = info
	return nil
}

func (m *mockObjectInfoCache) Delete(ctx context.Context, kind model.BackendKind, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, kind, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(kind)+":"+key)
	return nil
}

func (m *mockObjectInfoCache) has(kind model.BackendKind, key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[string(kind)+":"+key] != nil
}

// mockPlaybackRepository provides a configurable mock for PlaybackRepository.
type mockPlaybackRepository struct {
	recordEventFn func(ctx context.Context, event *model.PlaybackEvent) error
	getStatsFn    func(ctx context.Context, token string) (*repository.PlaybackStats, error)
	recorded      []*model.PlaybackEvent
}

func (m *mockPlaybackRepository) RecordEvent(ctx context.Context, event *model.PlaybackEvent) error {
	if m.recordEventFn != nil {
		return m.recordEventFn(ctx, event)
	}
	m.recorded = append(m.recorded, event)
	return nil
}

func (m *mockPlaybackRepository) GetStats(ctx context.Context, token string) (*repository.PlaybackStats, error) {
	if m.getStatsFn != nil {
		return m.getStatsFn(ctx, token)
	}
	return nil, repository.ErrStatsNotFound
}

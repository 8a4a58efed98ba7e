package repository

import (
	"context"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// PlaybackStats aggregates playback events for one token.
type PlaybackStats struct {
	Token       string
	Kind        model.BackendKind
	Plays       int64
	Completed   int64
	Aborted     int64
	BytesServed int64
}

// PlaybackRepository persists aggregated playback statistics.
type PlaybackRepository interface {
	// RecordEvent folds one event into the statistics for its token.
	// Recording the same event twice must not double count it.
	RecordEvent(ctx context.Context, event *model.PlaybackEvent) error

	// GetStats returns the statistics for a token.
	// Returns ErrStatsNotFound if nothing was recorded yet.
	GetStats(ctx context.Context, token string) (*PlaybackStats, error)
}

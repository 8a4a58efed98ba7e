package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/metrics"
)

// PlaybackRepository implements repository.PlaybackRepository using PostgreSQL.
type PlaybackRepository struct {
	db DBTX
}

// NewPlaybackRepository creates a new PlaybackRepository instance.
func NewPlaybackRepository(db DBTX) *PlaybackRepository {
	return &PlaybackRepository{db: db}
}

// RecordEvent folds event into playback_stats. The event id is remembered in
// playback_events so a redelivered message is counted once.
func (r *PlaybackRepository) RecordEvent(ctx context.Context, event *model.PlaybackEvent) error {
	const query = `
		WITH inserted AS (
			INSERT INTO playback_events (id, session_id, token, backend, outcome, bytes_sent, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
			RETURNING token
		)
		INSERT INTO playback_stats (token, backend, plays, completed, aborted, bytes_served, last_played_at)
		SELECT token, $4, 1, $8, $9, $6, $7 FROM inserted
		ON CONFLICT (token) DO UPDATE
		SET plays          = playback_stats.plays + 1,
		    completed      = playback_stats.completed + EXCLUDED.completed,
		    aborted        = playback_stats.aborted + EXCLUDED.aborted,
		    bytes_served   = playback_stats.bytes_served + EXCLUDED.bytes_served,
		    last_played_at = GREATEST(playback_stats.last_played_at, EXCLUDED.last_played_at)
	`

	var completed, aborted int64
	if event.Outcome == model.OutcomeCompleted {
		completed = 1
	} else {
		aborted = 1
	}

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQueryInsert, metrics.TablePlaybackEvents).Inc()

	_, err := r.db.Exec(ctx, query,
		event.ID,
		event.SessionID,
		event.Token,
		event.Kind.String(),
		event.Outcome.String(),
		event.BytesSent,
		event.OccurredAt,
		completed,
		aborted,
	)
	if err != nil {
		return fmt.Errorf("failed to record playback event: %w", err)
	}

	return nil
}

// GetStats retrieves the aggregated statistics for a token.
func (r *PlaybackRepository) GetStats(ctx context.Context, token string) (*repository.PlaybackStats, error) {
	const query = `
		SELECT token, backend, plays, completed, aborted, bytes_served
		FROM playback_stats
		WHERE token = $1
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TablePlaybackStats).Inc()

	var (
		stats repository.PlaybackStats
		kind  string
	)
	err := r.db.QueryRow(ctx, query, token).Scan(
		&stats.Token,
		&kind,
		&stats.Plays,
		&stats.Completed,
		&stats.Aborted,
		&stats.BytesServed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrStatsNotFound
		}
		return nil, fmt.Errorf("failed to get playback stats: %w", err)
	}

	stats.Kind = model.BackendKind(kind)
	return &stats, nil
}

// Compile-time verification that PlaybackRepository implements repository.PlaybackRepository.
var _ repository.PlaybackRepository = (*PlaybackRepository)(nil)

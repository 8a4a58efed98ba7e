package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/metrics"
)

// SessionRepository implements repository.SessionStore using PostgreSQL.
// The sessions table is owned by the auth service; this repository only reads it.
type SessionRepository struct {
	db DBTX
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// IsLive reports whether the session exists, is not revoked and has not expired.
func (r *SessionRepository) IsLive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM sessions
			WHERE id = $1
			  AND revoked_at IS NULL
			  AND expires_at > now()
		)
	`

	metrics.DBQueriesTotal.WithLabelValues(metrics.DBQuerySelect, metrics.TableSessions).Inc()

	var live bool
	if err := r.db.QueryRow(ctx, query, sessionID).Scan(&live); err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}

	return live, nil
}

// Compile-time verification that SessionRepository implements repository.SessionStore.
var _ repository.SessionStore = (*SessionRepository)(nil)

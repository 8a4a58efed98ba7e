package repository

import (
	"context"

	"github.com/google/uuid"
)

// SessionStore answers whether a session issued by the auth component is still live.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type SessionStore interface {
	// IsLive reports whether the session exists, is not revoked and has not expired.
	IsLive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

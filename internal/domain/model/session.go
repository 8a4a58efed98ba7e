package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionClaims are the verified claims carried by a caller's session credential.
type SessionClaims struct {
	SessionID uuid.UUID
	UserID    string
	Plan      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// HasLiveSessionID reports whether the claims name a session at all.
func (c SessionClaims) HasLiveSessionID() bool {
	return c.SessionID != uuid.Nil
}

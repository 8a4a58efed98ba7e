// Package auth verifies that a caller may start a stream.
//
// The gate re-validates identity and session liveness only. Plan-tier
// entitlement is enforced when the catalog hands out tokens, so a token the
// caller already holds stays streamable until the session itself expires.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
)

var (
	// ErrUnauthorized is returned when the credential is absent or fails verification.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidSession is returned when a verified credential does not name a live session.
	ErrInvalidSession = errors.New("invalid session")

	// ErrSessionStoreUnavailable is returned when session liveness cannot be checked.
	ErrSessionStoreUnavailable = errors.New("session store unavailable")
)

// Gate checks session credentials.
type Gate struct {
	tokens   *TokenManager
	sessions repository.SessionStore
}

// NewGate creates a Gate. sessions may be nil, in which case only the
// credential itself is checked.
func NewGate(tokens *TokenManager, sessions repository.SessionStore) *Gate {
	return &Gate{tokens: tokens, sessions: sessions}
}

// Check verifies credential and returns its claims.
func (g *Gate) Check(ctx context.Context, credential string) (model.SessionClaims, error) {
	if credential == "" {
		return model.SessionClaims{}, ErrUnauthorized
	}

	cl, err := g.tokens.parse(credential)
	if err != nil {
		return model.SessionClaims{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if cl.SessionID == "" {
		return model.SessionClaims{}, ErrInvalidSession
	}
	sid, err := uuid.Parse(cl.SessionID)
	if err != nil || sid == uuid.Nil {
		return model.SessionClaims{}, ErrInvalidSession
	}

	if g.sessions != nil {
		live, err := g.sessions.IsLive(ctx, sid)
		if err != nil {
			return model.SessionClaims{}, fmt.Errorf("%w: %w", ErrSessionStoreUnavailable, err)
		}
		if !live {
			return model.SessionClaims{}, ErrInvalidSession
		}
	}

	claims := model.SessionClaims{
		SessionID: sid,
		UserID:    cl.Subject,
		Plan:      cl.Plan,
	}
	if cl.IssuedAt != nil {
		claims.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		claims.ExpiresAt = cl.ExpiresAt.Time
	}
	return claims, nil
}

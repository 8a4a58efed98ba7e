package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// sessionClaims is the wire form of a session credential.
type sessionClaims struct {
	SessionID string `json:"sid,omitempty"`
	Plan      string `json:"plan,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 session credentials.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager. An empty issuer disables the issuer check.
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue signs a credential for userID bound to sessionID.
// Session issuance belongs to the auth service; this exists for tooling and tests.
func (m *TokenManager) Issue(userID string, sessionID uuid.UUID, plan string) (string, model.SessionClaims, error) {
	now := time.Now().UTC()

	cl := sessionClaims{
		Plan: plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if sessionID != uuid.Nil {
		cl.SessionID = sessionID.String()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", model.SessionClaims{}, fmt.Errorf("sign session token: %w", err)
	}

	return signed, model.SessionClaims{
		SessionID: sessionID,
		UserID:    userID,
		Plan:      plan,
		IssuedAt:  cl.IssuedAt.Time,
		ExpiresAt: cl.ExpiresAt.Time,
	}, nil
}

// parse verifies signature, algorithm, expiry and issuer.
func (m *TokenManager) parse(raw string) (*sessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var out sessionClaims
	tkn, err := jwt.ParseWithClaims(raw, &out, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &out, nil
}

package auth

import (
	"context"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

type claimsKey struct{}

// WithClaims returns a copy of ctx carrying verified session claims.
func WithClaims(ctx context.Context, claims model.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims.
func ClaimsFromContext(ctx context.Context) (model.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(model.SessionClaims)
	return claims, ok
}

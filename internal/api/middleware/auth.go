package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hszk-dev/streamgate/internal/api/handler"
	"github.com/hszk-dev/streamgate/internal/auth"
	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// SessionChecker verifies a raw session credential. *auth.Gate satisfies it.
type SessionChecker interface {
	Check(ctx context.Context, credential string) (model.SessionClaims, error)
}

// RequireSession rejects requests without a live session and stores the
// verified claims in the request context for later handlers.
func RequireSession(checker SessionChecker, cookieName string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := checker.Check(r.Context(), credential(r, cookieName))
			if err != nil {
				switch {
				case errors.Is(err, auth.ErrSessionStoreUnavailable):
					logger.Error("session store unavailable",
						slog.String("request_id", GetRequestID(r.Context())),
						slog.String("error", err.Error()),
					)
					handler.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", "Session could not be verified")
				case errors.Is(err, auth.ErrInvalidSession):
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
					handler.Error(w, r, http.StatusUnauthorized, "invalid_session", "Session is not valid")
				default:
					w.Header().Set("WWW-Authenticate", "Bearer")
					handler.Error(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
		})
	}
}

// credential returns the bearer token, falling back to the session cookie.
func credential(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			if token = strings.TrimSpace(token); token != "" {
				return token
			}
		}
	}
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hszk-dev/streamgate/internal/api/handler"
	"github.com/hszk-dev/streamgate/internal/infrastructure/metrics"
)

// Limiter decides whether a client may make another request.
// *ratelimit.FixedWindow satisfies it.
type Limiter interface {
	Allow(key string) bool
	RetryAfter(key string) time.Duration
}

// RateLimit rejects clients over their request quota with 429.
// The client key is the remote IP, so chi's RealIP should run first when
// the server sits behind a proxy.
func RateLimit(limiter Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.RateLimitedTotal.Inc()
			logger.Warn("rate limited",
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("client", key),
			)

			secs := int(math.Ceil(limiter.RetryAfter(key).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			handler.Text(w, http.StatusTooManyRequests)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

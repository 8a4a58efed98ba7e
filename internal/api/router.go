// Package api assembles the HTTP surface of the streaming gateway.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hszk-dev/streamgate/internal/api/handler"
	"github.com/hszk-dev/streamgate/internal/api/middleware"
)

// RouterConfig lists what the router needs. Nil Limiter, Ready and Metrics
// disable the corresponding feature.
type RouterConfig struct {
	Logger      *slog.Logger
	Stream      *handler.StreamHandler
	Sessions    middleware.SessionChecker
	CookieName  string
	Limiter     middleware.Limiter
	CORSOrigins []string
	Ready       http.Handler
	Metrics     http.Handler
}

// NewRouter wires middleware and routes.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recoverer(cfg.Logger))

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Range"},
			ExposedHeaders:   []string{"Accept-Ranges", "Content-Length", "Content-Range", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", handler.Health)
	if cfg.Ready != nil {
		r.Method(http.MethodGet, "/ready", cfg.Ready)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(middleware.RateLimit(cfg.Limiter, cfg.Logger))
		}
		r.Use(middleware.RequireSession(cfg.Sessions, cfg.CookieName, cfg.Logger))

		r.Get("/stream/{token}", cfg.Stream.Stream)
		r.Head("/stream/{token}", cfg.Stream.Stream)
	})

	return r
}

// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log"
	"log/slog"

	"github.com/lmittmann/tint"

	"github.com/hszk-dev/streamgate/internal/config"
)

// New returns a JSON logger, or a colored tint logger when cfg.Format is "text".
func New(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var h slog.Handler
	if cfg.Format == "text" {
		h = tint.NewHandler(w, &tint.Options{
			Level:      cfg.SlogLevel(),
			TimeFormat: "15:04:05.000",
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: cfg.SlogLevel(),
		})
	}
	return slog.New(h)
}

// Setup installs logger as the slog default and routes the standard log
// package through it, so messages from net/http end up structured too.
func Setup(logger *slog.Logger) {
	slog.SetDefault(logger)

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(logger.Handler(), slog.LevelWarn).Writer())
}

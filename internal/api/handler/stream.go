package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hszk-dev/streamgate/internal/auth"
	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/metrics"
	"github.com/hszk-dev/streamgate/internal/stream"
	"github.com/hszk-dev/streamgate/internal/usecase"
)

const defaultPublishTimeout = 2 * time.Second

// StreamHandlerConfig holds configuration for StreamHandler.
type StreamHandlerConfig struct {
	BufferSize     int
	PublishTimeout time.Duration
}

// StreamHandler serves GET and HEAD /v1/stream/{token}.
type StreamHandler struct {
	svc    usecase.StreamService
	events repository.EventPublisher
	logger *slog.Logger
	cfg    StreamHandlerConfig
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(svc usecase.StreamService, events repository.EventPublisher, logger *slog.Logger, cfg StreamHandlerConfig) *StreamHandler {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return &StreamHandler{svc: svc, events: events, logger: logger, cfg: cfg}
}

// Stream handles GET|HEAD /v1/stream/{token}
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := chi.URLParam(r, "token")
	_, hasRange := r.Header["Range"]

	plan, err := h.svc.Prepare(ctx, token, r.Header.Get("Range"), hasRange)
	if err != nil {
		h.handleServiceError(w, r, metrics.BackendNone, err)
		return
	}
	backend := plan.Ref.Kind.String()

	status := http.StatusOK
	if plan.Window.Partial {
		status = http.StatusPartialContent
	}

	if r.Method == http.MethodHead {
		setStreamHeaders(w, plan)
		w.WriteHeader(status)
		metrics.StreamRequestsTotal.WithLabelValues(backend, strconv.Itoa(status)).Inc()
		return
	}

	body, err := h.svc.Open(ctx, plan)
	if err != nil {
		if clientGone(r, err) {
			h.handleServiceError(w, r, backend, err)
			return
		}
		h.logger.Error("failed to open backend range",
			slog.String("request_id", chimw.GetReqID(ctx)),
			slog.String("backend", backend),
			slog.String("key", plan.Ref.Key),
			slog.Int64("start", plan.Window.Start),
			slog.Int64("end", plan.Window.End),
			slog.String("error", err.Error()),
		)
		h.handleServiceError(w, r, backend, err)
		return
	}

	sess := stream.NewSession(w, body, plan.Window, h.cfg.BufferSize)
	defer sess.Close()

	setStreamHeaders(w, plan)
	if err := sess.WriteHeader(status); err != nil {
		h.handleServiceError(w, r, backend, err)
		return
	}

	metrics.ActiveStreams.Inc()
	sent, err := sess.Pump(ctx)
	metrics.ActiveStreams.Dec()
	metrics.StreamBytesTotal.WithLabelValues(backend).Add(float64(sent))

	outcome := model.OutcomeCompleted
	switch {
	case err == nil:
		metrics.StreamRequestsTotal.WithLabelValues(backend, strconv.Itoa(status)).Inc()
	case errors.Is(err, stream.ErrClientDisconnected):
		outcome = model.OutcomeDisconnected
		metrics.StreamRequestsTotal.WithLabelValues(backend, "aborted").Inc()
		h.logger.Debug("client disconnected",
			slog.String("request_id", chimw.GetReqID(ctx)),
			slog.Int64("bytes_sent", sent),
			slog.Int64("window_length", plan.Window.Length()),
		)
	default:
		outcome = model.OutcomeFailed
		metrics.StreamRequestsTotal.WithLabelValues(backend, "failed").Inc()
		metrics.BackendErrorsTotal.WithLabelValues(backend, metrics.BackendErrorMidStream).Inc()
		h.logger.Error("stream aborted by backend",
			slog.String("request_id", chimw.GetReqID(ctx)),
			slog.String("backend", backend),
			slog.String("key", plan.Ref.Key),
			slog.Int64("start", plan.Window.Start),
			slog.Int64("end", plan.Window.End),
			slog.Int64("bytes_sent", sent),
			slog.String("error", err.Error()),
		)
	}

	h.publish(ctx, plan, sent, outcome)

	if outcome == model.OutcomeFailed {
		// Headers promised more bytes than were sent; drop the connection
		// so the client does not mistake the body for a complete one.
		panic(http.ErrAbortHandler)
	}
}

// publish reports the finished relay. It outlives request cancellation so
// disconnects are still counted.
func (h *StreamHandler) publish(ctx context.Context, plan *usecase.StreamPlan, sent int64, outcome model.PlaybackOutcome) {
	if h.events == nil {
		return
	}

	claims, _ := auth.ClaimsFromContext(ctx)
	event := model.NewPlaybackEvent(claims, plan.Token, plan.Ref, plan.Window, sent, outcome)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.cfg.PublishTimeout)
	defer cancel()

	if err := h.events.PublishPlaybackEvent(pubCtx, event); err != nil {
		metrics.PlaybackEventsTotal.WithLabelValues(metrics.PlaybackOpPublish, metrics.PlaybackStatusError).Inc()
		h.logger.Warn("failed to publish playback event",
			slog.String("request_id", chimw.GetReqID(ctx)),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	metrics.PlaybackEventsTotal.WithLabelValues(metrics.PlaybackOpPublish, metrics.PlaybackStatusSuccess).Inc()
}

func setStreamHeaders(w http.ResponseWriter, plan *usecase.StreamPlan) {
	h := w.Header()

	contentType := plan.Ref.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(plan.Window.Length(), 10))
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Disposition", contentDisposition(plan.Ref.Name))
	if plan.Window.Partial {
		h.Set("Content-Range", plan.Window.ContentRange())
	}
}

func contentDisposition(name string) string {
	if name == "" {
		return "inline"
	}
	if v := mime.FormatMediaType("inline", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "inline"
}

// clientGone reports whether err comes from the request being cancelled
// rather than from a backend.
func clientGone(r *http.Request, err error) bool {
	return r.Context().Err() != nil || errors.Is(err, context.Canceled)
}

func (h *StreamHandler) handleServiceError(w http.ResponseWriter, r *http.Request, backend string, err error) {
	var rangeErr *usecase.RangeNotSatisfiableError

	switch {
	case clientGone(r, err):
		// Nobody is listening; no body, and not a backend failure.
		metrics.StreamRequestsTotal.WithLabelValues(backend, "aborted").Inc()
		h.logger.Debug("client disconnected before streaming",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("backend", backend),
			slog.String("error", err.Error()),
		)
	case errors.As(err, &rangeErr):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", rangeErr.Total))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		metrics.StreamRequestsTotal.WithLabelValues(backend, "416").Inc()
	case errors.Is(err, stream.ErrRangeNotSatisfiable):
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		metrics.StreamRequestsTotal.WithLabelValues(backend, "416").Inc()
	case errors.Is(err, repository.ErrObjectNotFound):
		metrics.BackendErrorsTotal.WithLabelValues(backend, metrics.BackendErrorNotFound).Inc()
		metrics.StreamRequestsTotal.WithLabelValues(backend, "404").Inc()
		Error(w, r, http.StatusNotFound, "not_found", "Media not found")
	case errors.Is(err, repository.ErrQuotaExceeded):
		metrics.BackendErrorsTotal.WithLabelValues(backend, metrics.BackendErrorQuota).Inc()
		metrics.StreamRequestsTotal.WithLabelValues(backend, "403").Inc()
		Error(w, r, http.StatusForbidden, "quota_exceeded", "Storage provider quota exceeded, try again later")
	case errors.Is(err, repository.ErrBackendUnavailable), errors.Is(err, repository.ErrNoBackend):
		metrics.BackendErrorsTotal.WithLabelValues(backend, metrics.BackendErrorUnavailable).Inc()
		metrics.StreamRequestsTotal.WithLabelValues(backend, "503").Inc()
		h.logger.Warn("storage backend unavailable",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("backend", backend),
			slog.String("error", err.Error()),
		)
		Error(w, r, http.StatusServiceUnavailable, "service_unavailable", "Storage backend unavailable")
	default:
		metrics.StreamRequestsTotal.WithLabelValues(backend, "500").Inc()
		h.logger.Error("unexpected stream error",
			slog.String("request_id", chimw.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		Text(w, http.StatusInternalServerError)
	}
}

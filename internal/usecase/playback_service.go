package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
	"github.com/hszk-dev/streamgate/internal/infrastructure/metrics"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts before an event is dropped.
	DefaultMaxRetries = 3
)

// PlaybackServiceConfig holds configuration for PlaybackService.
type PlaybackServiceConfig struct {
	// MaxRetries is the maximum number of retry attempts before an event is dropped.
	MaxRetries int
}

// DefaultPlaybackServiceConfig returns the default configuration.
func DefaultPlaybackServiceConfig() PlaybackServiceConfig {
	return PlaybackServiceConfig{
		MaxRetries: DefaultMaxRetries,
	}
}

// PlaybackService defines the interface for playback statistics processing.
type PlaybackService interface {
	// Record folds a playback event from the message queue into the statistics.
	// Returns nil on success or permanent failure (invalid event, max retries exceeded).
	// Returns error for transient failures that should trigger a retry.
	Record(ctx context.Context, event *model.PlaybackEvent) error

	// Stats returns the aggregated statistics for a token.
	Stats(ctx context.Context, token string) (*repository.PlaybackStats, error)
}

type playbackService struct {
	repo       repository.PlaybackRepository
	maxRetries int
}

// NewPlaybackService creates a new PlaybackService instance.
func NewPlaybackService(repo repository.PlaybackRepository, cfg PlaybackServiceConfig) PlaybackService {
	return &playbackService{
		repo:       repo,
		maxRetries: cfg.MaxRetries,
	}
}

// Record stores one playback event.
func (s *playbackService) Record(ctx context.Context, event *model.PlaybackEvent) error {
	// Check if max retries exceeded - drop and return nil (ack the message)
	if event.RetryCount >= s.maxRetries {
		metrics.PlaybackEventsTotal.WithLabelValues(metrics.PlaybackOpRecord, metrics.PlaybackStatusDropped).Inc()
		slog.Error("dropping playback event after max retries",
			"event_id", event.ID,
			"retry_count", event.RetryCount,
		)
		return nil
	}

	if err := validateEvent(event); err != nil {
		metrics.PlaybackEventsTotal.WithLabelValues(metrics.PlaybackOpRecord, metrics.PlaybackStatusDropped).Inc()
		slog.Warn("dropping invalid playback event",
			"event_id", event.ID,
			"error", err,
		)
		return nil
	}

	if err := s.repo.RecordEvent(ctx, event); err != nil {
		metrics.PlaybackEventsTotal.WithLabelValues(metrics.PlaybackOpRecord, metrics.PlaybackStatusError).Inc()
		return fmt.Errorf("record playback event: %w", err)
	}

	metrics.PlaybackEventsTotal.WithLabelValues(metrics.PlaybackOpRecord, metrics.PlaybackStatusSuccess).Inc()
	return nil
}

// Stats returns the aggregated statistics for token.
func (s *playbackService) Stats(ctx context.Context, token string) (*repository.PlaybackStats, error) {
	return s.repo.GetStats(ctx, token)
}

func validateEvent(e *model.PlaybackEvent) error {
	switch {
	case e.Token == "":
		return fmt.Errorf("missing token")
	case !e.Kind.IsValid():
		return fmt.Errorf("invalid backend %q", e.Kind)
	case !e.Outcome.IsValid():
		return fmt.Errorf("invalid outcome %q", e.Outcome)
	case e.BytesSent < 0 || e.Start < 0 || e.End < e.Start:
		return fmt.Errorf("invalid window %d-%d sent %d", e.Start, e.End, e.BytesSent)
	}
	return nil
}

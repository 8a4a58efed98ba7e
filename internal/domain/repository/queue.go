package repository

import (
	"context"

	"github.com/hszk-dev/streamgate/internal/domain/model"
)

// EventPublisher publishes playback events produced by the streaming API.
type EventPublisher interface {
	// PublishPlaybackEvent sends one event to the queue.
	PublishPlaybackEvent(ctx context.Context, event *model.PlaybackEvent) error
}

// MessageQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type MessageQueue interface {
	EventPublisher

	// ConsumePlaybackEvents starts consuming playback events from the queue.
	// The handler function is called for each received event.
	// Used by the worker service.
	ConsumePlaybackEvents(ctx context.Context, handler func(event *model.PlaybackEvent) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}

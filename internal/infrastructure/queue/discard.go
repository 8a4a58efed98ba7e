package queue

import (
	"context"

	"github.com/hszk-dev/streamgate/internal/domain/model"
	"github.com/hszk-dev/streamgate/internal/domain/repository"
)

// Discard is an EventPublisher that drops every event.
// The API uses it when no broker is configured.
type Discard struct{}

var _ repository.EventPublisher = Discard{}

func (Discard) PublishPlaybackEvent(context.Context, *model.PlaybackEvent) error {
	return nil
}

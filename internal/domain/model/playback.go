package model

import (
	"time"

	"github.com/google/uuid"
)

// PlaybackOutcome describes how a relayed stream ended.
type PlaybackOutcome string

const (
	OutcomeCompleted    PlaybackOutcome = "COMPLETED"
	OutcomeDisconnected PlaybackOutcome = "DISCONNECTED"
	OutcomeFailed       PlaybackOutcome = "FAILED"
)

func (o PlaybackOutcome) IsValid() bool {
	switch o {
	case OutcomeCompleted, OutcomeDisconnected, OutcomeFailed:
		return true
	default:
		return false
	}
}

func (o PlaybackOutcome) String() string {
	return string(o)
}

// PlaybackEvent records one finished relay session.
// Token is the public token, never the storage key.
type PlaybackEvent struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	UserID     string          `json:"user_id"`
	Token      string          `json:"token"`
	Kind       BackendKind     `json:"backend"`
	Start      int64           `json:"start"`
	End        int64           `json:"end"`
	Total      int64           `json:"total"`
	BytesSent  int64           `json:"bytes_sent"`
	Outcome    PlaybackOutcome `json:"outcome"`
	OccurredAt time.Time       `json:"occurred_at"`
	RetryCount int             `json:"retry_count"`
}

// NewPlaybackEvent builds an event for a relay that ended with the given outcome.
func NewPlaybackEvent(claims SessionClaims, token string, ref *ObjectRef, w ServingWindow, sent int64, outcome PlaybackOutcome) *PlaybackEvent {
	return &PlaybackEvent{
		ID:         uuid.New(),
		SessionID:  claims.SessionID,
		UserID:     claims.UserID,
		Token:      token,
		Kind:       ref.Kind,
		Start:      w.Start,
		End:        w.End,
		Total:      w.Total,
		BytesSent:  sent,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	}
}

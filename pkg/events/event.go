package events

import (
	"context"
	"time"
)

// Event type codes published on events.<TYPE>
const (
	TypeTurnCompleted    = "TURN_COMPLETED"
	TypeSessionDeleted   = "SESSION_DELETED"
	TypeDocumentIngested = "DOCUMENT_INGESTED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher sends events to the bus
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher drops every event; used when NATS is not configured
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }

func TurnCompleted(sessionID, outcome string, followupRequired bool, at time.Time) Event {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id":        sessionID,
			"outcome":           outcome,
			"followup_required": followupRequired,
			"occurred_at":       at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}

func SessionDeleted(sessionID string, at time.Time) Event {
	return BaseEvent{
		Type: TypeSessionDeleted,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"occurred_at": at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}

func DocumentIngested(sessionID, filename string, chunks int, at time.Time) Event {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"filename":    filename,
			"chunks":      chunks,
			"occurred_at": at.Format(time.RFC3339),
		},
		OccurredAt: at,
	}
}

// Package events defines the messages that are sent to Kafka.
package events

import (
	"sara-smart-go/internal/model"
	"time"

	"github.com/google/uuid"
)

// SessionEnded is published once per finished analytics session.
type SessionEnded struct {
	EventID   string              `json:"event_id"`
	EmittedAt time.Time           `json:"emitted_at"`
	Record    model.SessionRecord `json:"record"`
}

// NewSessionEnded wraps a finalized record with a fresh event id.
func NewSessionEnded(record model.SessionRecord) SessionEnded {
	return SessionEnded{
		EventID:   uuid.NewString(),
		EmittedAt: time.Now(),
		Record:    record,
	}
}

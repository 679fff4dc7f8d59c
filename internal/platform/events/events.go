// Package events publishes workflow events (symptom status changes,
// appointment transitions, uploaded results) to an external sink.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicflow/clinicflow/internal/platform/db"
)

const (
	TypeSymptomStatusChanged     = "symptom.status_changed"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypeLabResultUploaded        = "labtest.result_uploaded"
	TypeConsentRevoked           = "consent.revoked"
)

// Event is the envelope written to every backend.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// New builds an event for subject (the aggregate id) with data marshalled as JSON.
func New(eventType, subject string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

// PublishAfterCommit sends the event once the surrounding transaction commits.
// Failures are logged and never reach the caller; the state change already
// happened.
func PublishAfterCommit(ctx context.Context, pub Publisher, eventType, subject string, data interface{}) {
	evt, err := New(eventType, subject, data)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("event_type", eventType).Msg("encode event")
		return
	}
	db.AfterCommit(ctx, func(ctx context.Context) {
		if err := pub.Publish(context.WithoutCancel(ctx), evt); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str("event_type", evt.Type).
				Str("subject", evt.Subject).
				Msg("publish event")
		}
	})
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Memory records events in order. Used by tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Publish(_ context.Context, evt Event) error {
	m.mu.Lock()
	m.events = append(m.events, evt)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Types lists the published event types in order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}

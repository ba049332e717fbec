package ratelimit

import (
	"time"

	"github.com/google/uuid"
)

// TopicEvents is the topic rate limit events are published on.
const TopicEvents = "ratelimit.events"

// EventKind distinguishes rate limit events.
type EventKind string

const (
	// EventRejected is emitted when a request is rejected.
	EventRejected EventKind = "rejected"
	// EventCompensated is emitted when a failed request's count is taken back.
	EventCompensated EventKind = "compensated"
)

// Event describes a rejection or compensation.
type Event struct {
	ID         string    `json:"id"`
	Kind       EventKind `json:"kind"`
	Key        string    `json:"key"`
	Method     string    `json:"method"`
	URL        string    `json:"url"`
	Requests   int64     `json:"requests"`
	Max        int64     `json:"max"`
	Window     int64     `json:"window"`
	RetryAfter int64     `json:"retryAfter,omitempty"`
	Status     int       `json:"status"`
	At         time.Time `json:"at"`
}

// NewEvent builds an event for outcome.
func NewEvent(kind EventKind, outcome *Outcome, status int, at time.Time) *Event {
	event := &Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Key:        outcome.Key,
		Requests:   outcome.Decision.Record.Requests,
		Max:        outcome.Quota.Max,
		Window:     outcome.Quota.Window,
		RetryAfter: outcome.Decision.RetryAfter,
		Status:     status,
		At:         at,
	}

	if outcome.request != nil {
		event.Method = outcome.request.Method()
		event.URL = outcome.request.URL()
	}

	return event
}

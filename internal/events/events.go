// Package events publishes user and expense lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Routing keys.
const (
	UserRegistered = "user.registered"
	ExpenseCreated = "expense.created"
	ExpenseUpdated = "expense.updated"
	ExpenseDeleted = "expense.deleted"
)

// Event is a notification body. It identifies records only; it never
// carries credentials or expense contents.
type Event struct {
	Type       string    `json:"type"`
	ID         string    `json:"id"`
	Owner      string    `json:"owner,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// New stamps an event with the current time.
func New(eventType, id, owner string) Event {
	return Event{Type: eventType, ID: id, Owner: owner, OccurredAt: time.Now().UTC()}
}

func (e Event) marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

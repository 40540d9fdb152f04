package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported change identifiers.
type EventType string

const (
	EventCreated       EventType = "created"
	EventUpdated       EventType = "updated"
	EventStatusChanged EventType = "status_changed"
	EventAssigned      EventType = "assigned"
	EventItemsChanged  EventType = "items_changed"
	EventPaid          EventType = "paid"
)

// AllCollections subscribes a handler to changes in every collection.
const AllCollections = "*"

// Actor identifies who caused a change.
type Actor struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
}

// Event is one accepted write to a document collection.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Collection string            `json:"collection"`
	DocumentID string            `json:"documentId"`
	Actor      Actor             `json:"actor"`
	Timestamp  time.Time         `json:"timestamp"`
	Detail     map[string]string `json:"detail,omitempty"`
}

// NewEvent stamps an event with a fresh id.
func NewEvent(collection string, typ EventType, documentID string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Collection: collection,
		DocumentID: documentID,
		Timestamp:  at,
	}
}

// StatusDetail describes a status move for Event.Detail.
func StatusDetail(from, to string) map[string]string {
	return map[string]string{"from": from, "to": to}
}

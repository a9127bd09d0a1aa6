package product

import "time"

const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
	EventProductDeleted = "ProductDeleted"
)

// Event is the catalog.events message body.
type Event struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Source    string       `json:"source"`
	Payload   EventPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type EventPayload struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
}

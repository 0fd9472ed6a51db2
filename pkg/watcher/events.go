package watcher

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventSmartAccountResolved EventType = "smart_account_resolved"
	EventBalancesUpdated      EventType = "balances_updated"
	EventSessionChanged       EventType = "session_changed"
)

// Event carries the card state as of the change.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event

package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventRecordCreated     EventType = "record_created"
	EventRecordUpdated     EventType = "record_updated"
	EventRecordDeleted     EventType = "record_deleted"
	EventCollectionCleared EventType = "collection_cleared"
)

// Event represents a write that happened to a collection
type Event struct {
	Type       EventType `json:"type"`
	Collection string    `json:"collection"`
	Key        any       `json:"key,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers. A nil bus drops it.
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

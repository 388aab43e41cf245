package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of catalog lifecycle notifications the engine
// publishes once a DDL transaction commits (the design notes,
// "Interceptors" - observers reacting to entity changes, outside the commit
// path itself).
type EventType string

const (
	EventNamespaceCreated  EventType = "namespace.created"
	EventNamespaceDropped  EventType = "namespace.dropped"
	EventTableCreated      EventType = "table.created"
	EventTableDropped      EventType = "table.dropped"
	EventViewCreated       EventType = "view.created"
	EventViewDropped       EventType = "view.dropped"
	EventRingBufferCreated EventType = "ring_buffer.created"
	EventDictionaryCreated EventType = "dictionary.created"
	EventFlowRegistered    EventType = "flow.registered"
	EventFlowDropped       EventType = "flow.dropped"
)

// Event is one catalog lifecycle notification. EntityID and Version tie the
// notification back to the specific versioned pkg/catalog entry that caused
// it - a catalog observer needs to correlate on that, not just read a
// human-readable message.
type Event struct {
	ID        string
	Type      EventType
	EntityID  uint64
	Version   uint64
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker distributes catalog lifecycle events to every live subscriber.
// Publish is non-blocking; a subscriber whose buffer is full simply misses
// the event rather than stalling the publishing commit.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; !ok {
		return
	}
	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers, stamping ID and Timestamp
// if the caller left them unset.
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

// PublishEntity is the shape every pkg/engine DDL call site actually wants -
// one versioned catalog entity changed, named by message - so callers don't
// hand-build an Event literal for the common case.
func (b *Broker) PublishEntity(eventType EventType, entityID uint64, version uint64, message string) {
	b.Publish(&Event{Type: eventType, EntityID: entityID, Version: version, Message: message})
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

// broadcast snapshots the subscriber set under lock, then sends without
// holding it, so a slow or large fan-out never blocks a concurrent
// Subscribe/Unsubscribe.
func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subscribers))
	for sub := range b.subscribers {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		select {
		case sub <- event:
		default:
			// subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

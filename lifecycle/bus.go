package lifecycle

import (
	"sync"
	"time"

	"github.com/hupe1980/agentguard/core"
	"github.com/hupe1980/agentguard/logging"
)

// EventType names a lifecycle point both engines publish from.
type EventType string

const (
	// EventPermissionChecked fires after every permission evaluation.
	EventPermissionChecked EventType = "permission.checked"

	// EventConflictDetected fires when detection produces a new report.
	EventConflictDetected EventType = "conflict.detected"

	// EventConflictAnalyzing fires when an arbiter claims a report.
	EventConflictAnalyzing EventType = "conflict.analyzing"

	// EventConflictResolved fires when arbitration produces a resolution.
	EventConflictResolved EventType = "conflict.resolved"

	// EventConflictEscalated fires when arbitration hands off to a human.
	EventConflictEscalated EventType = "conflict.escalated"
)

// Event is one published lifecycle notification. Payload carries the
// domain object the event refers to (a core.PermissionResult, a
// core.ConflictReport, ...). Events are informational only; they are not
// part of the functional contract of either engine.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// NewEvent constructs an event of the given type with a fresh id.
func NewEvent(eventType EventType, payload any) Event {
	return Event{
		ID:        core.NewID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// Subscriber receives published events. Implementations should be fast;
// a slow subscriber delays the publishing call but can never fail it.
type Subscriber interface {
	// Types returns the event types this subscriber wants. An empty slice
	// subscribes to everything.
	Types() []EventType

	// Handle processes one event. A returned error is logged and dropped.
	Handle(event Event) error
}

// FunctionSubscriber wraps a function as a subscriber implementation.
type FunctionSubscriber struct {
	types []EventType
	fn    func(event Event) error
}

// NewFunctionSubscriber creates a subscriber from a function. Passing no
// types subscribes to all events.
func NewFunctionSubscriber(fn func(event Event) error, types ...EventType) *FunctionSubscriber {
	return &FunctionSubscriber{types: types, fn: fn}
}

// Types returns the subscribed event types.
func (s *FunctionSubscriber) Types() []EventType { return s.types }

// Handle calls the wrapped function.
func (s *FunctionSubscriber) Handle(event Event) error { return s.fn(event) }

// Bus fans published events out to registered subscribers. Safe for
// concurrent use. Publishing is synchronous but failure-proof: subscriber
// errors and panics are contained and logged.
type Bus struct {
	mu          sync.RWMutex
	subscribers []Subscriber
	logger      logging.Logger
}

// NewBus constructs an empty bus. A nil logger is replaced with NoOpLogger.
func NewBus(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Bus{logger: logger}
}

// Subscribe registers a subscriber for future events.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Publish delivers the event to every matching subscriber in registration
// order. Never returns an error; the engines must not depend on delivery.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.RUnlock()

	for _, sub := range subs {
		if !wants(sub, event.Type) {
			continue
		}
		b.deliver(sub, event)
	}
}

// deliver invokes one subscriber, containing panics.
func (b *Bus) deliver(sub Subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("lifecycle subscriber panicked", "event_type", event.Type, "panic", r)
		}
	}()
	if err := sub.Handle(event); err != nil {
		b.logger.Warn("lifecycle subscriber failed", "event_type", event.Type, "error", err)
	}
}

func wants(sub Subscriber, eventType EventType) bool {
	types := sub.Types()
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == eventType {
			return true
		}
	}
	return false
}

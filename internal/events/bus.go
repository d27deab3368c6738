package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Bus is an in-process publish/subscribe event bus. Handlers for an emitted
// event run sequentially on a single background goroutine per emission, so
// they must not block for long; the SSE layer uses buffered channels with
// non-blocking sends for exactly this reason.
type Bus struct {
	log         zerolog.Logger
	mu          sync.RWMutex
	subscribers map[EventType][]func(*Event)
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		log:         log.With().Str("component", "event_bus").Logger(),
		subscribers: make(map[EventType][]func(*Event)),
	}
}

// Subscribe registers a handler for an event type. There is no unsubscribe;
// long-lived consumers (SSE connections) guard their own channels instead.
func (b *Bus) Subscribe(eventType EventType, handler func(*Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Emit publishes an event to all subscribers of its type.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := make([]func(*Event), len(b.subscribers[eventType]))
	copy(handlers, b.subscribers[eventType])
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	go func() {
		for _, handler := range handlers {
			b.deliver(handler, event)
		}
	}()
}

// deliver invokes one handler, recovering panics so a broken subscriber
// cannot take down the emitting goroutine.
func (b *Bus) deliver(handler func(*Event), event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event_type", string(event.Type)).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()

	handler(event)
}

// SubscriberCount returns the number of handlers registered for a type.
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[eventType])
}

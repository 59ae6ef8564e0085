package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives published events. Handlers must not block; slow
// consumers should buffer on their own channel.
type Handler func(event *Event)

// subscription pairs a handler with an identity so it can be removed.
type subscription struct {
	id      int
	handler Handler
}

// Bus is an in-process publish/subscribe hub for system events.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[EventType][]subscription
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers a handler for an event type. The returned func
// removes the handler; it is safe to call more than once.
func (b *Bus) Subscribe(eventType EventType, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.handlers[eventType]
		for i, sub := range subs {
			if sub.id == id {
				b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit publishes an event to all handlers subscribed to its type.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[eventType]))
	copy(subs, b.handlers[eventType])
	b.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(event)
	}
}

// EmitTyped publishes a typed payload, converting it to the map form the
// wire uses.
func (b *Bus) EmitTyped(module string, data EventData) {
	b.Emit(data.EventType(), module, convertEventDataToMap(data))
}

// EmitError publishes an error event.
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	b.log.Error().Err(err).Str("module", module).Msg("Error event emitted")
	b.EmitTyped(module, &ErrorEventData{Error: err.Error(), Context: context})
}

// convertEventDataToMap converts typed EventData to map[string]interface{}
func convertEventDataToMap(data EventData) map[string]interface{} {
	if data == nil {
		return nil
	}

	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}

	var result map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return nil
	}

	return result
}

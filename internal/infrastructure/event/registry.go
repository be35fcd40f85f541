package event

import (
	"sync"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// HandlerRegistry maps event types to their subscribed handlers. A handler
// registered with no types is a catch-all and sees every event.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[string][]shared.EventHandler
	catchAll []shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		byType: make(map[string][]shared.EventHandler),
	}
}

// Register subscribes a handler to the given event types, or to every event
// when none are given
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.catchAll = append(r.catchAll, handler)
		return
	}
	for _, t := range eventTypes {
		r.byType[t] = append(r.byType[t], handler)
	}
}

// Unregister drops a handler from every subscription it holds
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.catchAll = without(r.catchAll, handler)
	for t, handlers := range r.byType {
		if remaining := without(handlers, handler); len(remaining) > 0 {
			r.byType[t] = remaining
		} else {
			delete(r.byType, t)
		}
	}
}

// GetHandlers returns the handlers subscribed to an event type, with the
// catch-all handlers appended
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.byType[eventType]
	handlers := make([]shared.EventHandler, 0, len(typed)+len(r.catchAll))
	handlers = append(handlers, typed...)
	return append(handlers, r.catchAll...)
}

func without(handlers []shared.EventHandler, target shared.EventHandler) []shared.EventHandler {
	kept := handlers[:0:0]
	for _, h := range handlers {
		if h != target {
			kept = append(kept, h)
		}
	}
	return kept
}

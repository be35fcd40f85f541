package event

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// InMemoryEventBus delivers domain events to subscribed handlers within the
// same process. Delivery is synchronous and best-effort: a failing handler is
// logged and the remaining handlers still run, so event side effects never
// veto the command that raised them.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates a bus with an empty subscription set
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish delivers each event to every handler subscribed to its type
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		for _, handler := range b.registry.GetHandlers(evt.EventType()) {
			if err := b.deliver(ctx, handler, evt); err != nil {
				b.logger.Error("Event handler failed",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. With no explicit types the handler's own
// EventTypes decide what it receives; an empty list there subscribes it to
// everything.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe drops a handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("Event handler unsubscribed")
}

// Start marks the bus as running
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if b.running.CompareAndSwap(false, true) {
		b.logger.Info("Event bus started")
	}
	return nil
}

// Stop marks the bus as stopped. In-flight deliveries are synchronous, so
// there is nothing to drain.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if b.running.CompareAndSwap(true, false) {
		b.logger.Info("Event bus stopped")
	}
	return nil
}

// deliver invokes one handler, converting a panic into a logged drop so a
// broken handler cannot take down the publisher
func (b *InMemoryEventBus) deliver(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				zap.String("event_type", evt.EventType()),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.Handle(ctx, evt)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)

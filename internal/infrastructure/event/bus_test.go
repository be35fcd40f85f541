package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	accountID := uuid.New()
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "TestAggregate", uuid.New(), accountID),
	}
}

type recordingHandler struct {
	mu     sync.Mutex
	types  []string
	seen   []shared.DomainEvent
	err    error
	panics bool
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if h.panics {
		panic("handler exploded")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.types
}

func (h *recordingHandler) events() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.seen...)
}

func newTestBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	bus := NewInMemoryEventBus(zap.NewNop())
	require.NoError(t, bus.Start(context.Background()))
	t.Cleanup(func() {
		_ = bus.Stop(context.Background())
	})
	return bus
}

func TestInMemoryEventBus_PublishToSubscribedHandler(t *testing.T) {
	bus := newTestBus(t)

	handler := &recordingHandler{types: []string{entitlement.EventTypeTokensConsumed}}
	bus.Subscribe(handler)

	consumed := newTestEvent(entitlement.EventTypeTokensConsumed)
	refilled := newTestEvent(entitlement.EventTypeWalletRefilled)
	require.NoError(t, bus.Publish(context.Background(), consumed, refilled))

	seen := handler.events()
	require.Len(t, seen, 1)
	assert.Equal(t, consumed.EventID(), seen[0].EventID())
}

func TestInMemoryEventBus_WildcardHandlerSeesEverything(t *testing.T) {
	bus := newTestBus(t)

	wildcard := &recordingHandler{}
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(),
		newTestEvent(entitlement.EventTypeConnectionLinked),
		newTestEvent(entitlement.EventTypeTokensRefunded),
		newTestEvent("subscription.renewed"),
	))

	assert.Len(t, wildcard.events(), 3)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := newTestBus(t)

	failing := &recordingHandler{err: errors.New("boom")}
	healthy := &recordingHandler{}
	bus.Subscribe(failing, entitlement.EventTypeTokensConsumed)
	bus.Subscribe(healthy, entitlement.EventTypeTokensConsumed)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(entitlement.EventTypeTokensConsumed)))

	assert.Len(t, healthy.events(), 1)
}

func TestInMemoryEventBus_HandlerPanicIsRecovered(t *testing.T) {
	bus := newTestBus(t)

	panicking := &recordingHandler{panics: true}
	healthy := &recordingHandler{}
	bus.Subscribe(panicking, entitlement.EventTypeWalletRefilled)
	bus.Subscribe(healthy, entitlement.EventTypeWalletRefilled)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(entitlement.EventTypeWalletRefilled)))

	assert.Len(t, healthy.events(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := newTestBus(t)

	handler := &recordingHandler{}
	bus.Subscribe(handler, entitlement.EventTypeTokensConsumed)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(entitlement.EventTypeTokensConsumed)))

	assert.Empty(t, handler.events())
}

func TestAuditLogHandler(t *testing.T) {
	bus := newTestBus(t)
	bus.Subscribe(NewAuditLogHandler(zap.NewNop()))

	// The handler only logs; publishing must not error.
	require.NoError(t, bus.Publish(context.Background(), newTestEvent(entitlement.EventTypeConnectionRemoved)))
}

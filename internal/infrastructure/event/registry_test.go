package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
)

func TestHandlerRegistry_RegisterAndGet(t *testing.T) {
	registry := NewHandlerRegistry()

	consumed := &recordingHandler{}
	refilled := &recordingHandler{}
	registry.Register(consumed, entitlement.EventTypeTokensConsumed)
	registry.Register(refilled, entitlement.EventTypeWalletRefilled)

	handlers := registry.GetHandlers(entitlement.EventTypeTokensConsumed)
	assert.Len(t, handlers, 1)

	assert.Empty(t, registry.GetHandlers("unknown.event"))
}

func TestHandlerRegistry_WildcardIncludedForEveryType(t *testing.T) {
	registry := NewHandlerRegistry()

	wildcard := &recordingHandler{}
	specific := &recordingHandler{}
	registry.Register(wildcard)
	registry.Register(specific, entitlement.EventTypeConnectionLinked)

	assert.Len(t, registry.GetHandlers(entitlement.EventTypeConnectionLinked), 2)
	assert.Len(t, registry.GetHandlers("subscription.renewed"), 1)
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()

	handler := &recordingHandler{}
	registry.Register(handler, entitlement.EventTypeTokensConsumed, entitlement.EventTypeTokensRefunded)
	registry.Unregister(handler)

	assert.Empty(t, registry.GetHandlers(entitlement.EventTypeTokensConsumed))
	assert.Empty(t, registry.GetHandlers(entitlement.EventTypeTokensRefunded))
}

func TestHandlerRegistry_UnregisterSparesOtherHandlers(t *testing.T) {
	registry := NewHandlerRegistry()

	removed := &recordingHandler{}
	kept := &recordingHandler{}
	registry.Register(removed, entitlement.EventTypeTokensConsumed)
	registry.Register(kept, entitlement.EventTypeTokensConsumed)
	registry.Unregister(removed)

	handlers := registry.GetHandlers(entitlement.EventTypeTokensConsumed)
	assert.Len(t, handlers, 1)
	assert.Same(t, kept, handlers[0].(*recordingHandler))
}

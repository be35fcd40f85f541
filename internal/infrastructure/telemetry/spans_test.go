package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerlink/backend/internal/infrastructure/telemetry"
)

// setupTestTracer installs an in-memory span recorder as the global provider
// and returns it with a cleanup function.
func setupTestTracer(t *testing.T) (*tracetest.SpanRecorder, func()) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sr),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		_ = tp.Shutdown(context.Background())
	}
	return sr, cleanup
}

func hasAttribute(spans []sdktrace.ReadOnlySpan, key, want string) bool {
	for _, s := range spans {
		for _, attr := range s.Attributes() {
			if string(attr.Key) == key && attr.Value.Emit() == want {
				return true
			}
		}
	}
	return false
}

func TestStartSpan(t *testing.T) {
	sr, cleanup := setupTestTracer(t)
	defer cleanup()

	_, span := telemetry.StartSpan(context.Background(), "wallet.consume")
	require.NotNil(t, span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "wallet.consume", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())
}

func TestStartSpan_WithOptions(t *testing.T) {
	sr, cleanup := setupTestTracer(t)
	defer cleanup()

	_, span := telemetry.StartSpan(context.Background(), "banklink.exchange",
		telemetry.WithAttribute(telemetry.SpanAttrItemID, "item-1"),
		telemetry.WithSpanKind(trace.SpanKindClient),
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
	assert.True(t, hasAttribute(spans, telemetry.SpanAttrItemID, "item-1"))
}

func TestStartServiceSpan(t *testing.T) {
	sr, cleanup := setupTestTracer(t)
	defer cleanup()

	_, span := telemetry.StartServiceSpan(context.Background(), "subscription", "rollover")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "subscription.rollover", spans[0].Name())
}

func TestSetAttributes(t *testing.T) {
	sr, cleanup := setupTestTracer(t)
	defer cleanup()

	_, span := telemetry.StartSpan(context.Background(), "wallet.swap")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTokenType, "swap",
		telemetry.SpanAttrTokenCount, 1,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.True(t, hasAttribute(spans, telemetry.SpanAttrTokenType, "swap"))
	assert.True(t, hasAttribute(spans, telemetry.SpanAttrTokenCount, "1"))
}

func TestRecordError(t *testing.T) {
	sr, cleanup := setupTestTracer(t)
	defer cleanup()

	_, span := telemetry.StartSpan(context.Background(), "connection.link")
	telemetry.RecordError(span, errors.New("provider unavailable"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	sr, cleanup := setupTestTracer(t)
	defer cleanup()

	_, span := telemetry.StartSpan(context.Background(), "subscription.teardown")
	telemetry.AddEvent(span, "item_unlinked", telemetry.SpanAttrItemID, "item-1")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "item_unlinked", spans[0].Events()[0].Name)
}

func TestGetTraceID(t *testing.T) {
	_, cleanup := setupTestTracer(t)
	defer cleanup()

	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "wallet.refill")
	defer span.End()
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
}

package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// AuditLogHandler writes every published domain event to the structured log.
// It subscribes as a wildcard handler and gives operators a flat audit trail
// of wallet, connection, subscription and account activity.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates a new audit log handler
func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{
		logger: logger.Named("audit"),
	}
}

// Handle logs the event envelope
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("account_id", event.AccountID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns an empty slice so the handler receives all events
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)

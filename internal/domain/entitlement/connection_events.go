package entitlement

import (
	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeBankConnection = "BankConnection"
	AggregateTypeTokenWallet    = "TokenWallet"
)

// Event type constants
const (
	EventTypeConnectionLinked             = "ConnectionLinked"
	EventTypeConnectionRemoved            = "ConnectionRemoved"
	EventTypeConnectionRemovalFlagChanged = "ConnectionRemovalFlagChanged"
)

// ConnectionLinkedEvent is published when a new bank connection is linked
type ConnectionLinkedEvent struct {
	shared.BaseDomainEvent
	ConnectionID    uuid.UUID     `json:"connection_id"`
	InstitutionName string        `json:"institution_name"`
	BilledProducts  []ProductType `json:"billed_products"`
}

// NewConnectionLinkedEvent creates a new ConnectionLinkedEvent
func NewConnectionLinkedEvent(conn *BankConnection) *ConnectionLinkedEvent {
	return &ConnectionLinkedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectionLinked, AggregateTypeBankConnection, conn.ID, conn.AccountID),
		ConnectionID:    conn.ID,
		InstitutionName: conn.InstitutionName,
		BilledProducts:  conn.BilledProducts,
	}
}

// ConnectionRemovedEvent is published when a bank connection is disconnected
type ConnectionRemovedEvent struct {
	shared.BaseDomainEvent
	ConnectionID    uuid.UUID `json:"connection_id"`
	InstitutionName string    `json:"institution_name"`
	AtRollover      bool      `json:"at_rollover"`
}

// NewConnectionRemovedEvent creates a new ConnectionRemovedEvent.
// atRollover distinguishes flagged removals at cycle rollover from immediate,
// user-initiated disconnects.
func NewConnectionRemovedEvent(conn *BankConnection, atRollover bool) *ConnectionRemovedEvent {
	return &ConnectionRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectionRemoved, AggregateTypeBankConnection, conn.ID, conn.AccountID),
		ConnectionID:    conn.ID,
		InstitutionName: conn.InstitutionName,
		AtRollover:      atRollover,
	}
}

// ConnectionRemovalFlagChangedEvent is published when the removal flag toggles
type ConnectionRemovalFlagChangedEvent struct {
	shared.BaseDomainEvent
	ConnectionID uuid.UUID `json:"connection_id"`
	Flagged      bool      `json:"flagged"`
}

// NewConnectionRemovalFlagChangedEvent creates a new ConnectionRemovalFlagChangedEvent
func NewConnectionRemovalFlagChangedEvent(conn *BankConnection, flagged bool) *ConnectionRemovalFlagChangedEvent {
	return &ConnectionRemovalFlagChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeConnectionRemovalFlagChanged, AggregateTypeBankConnection, conn.ID, conn.AccountID),
		ConnectionID:    conn.ID,
		Flagged:         flagged,
	}
}

package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// TokenHistoryEntry is an immutable audit record of a single token movement.
// Entries are append-only and never mutated after creation.
type TokenHistoryEntry struct {
	ID               uuid.UUID   `json:"id"`
	AccountID        uuid.UUID   `json:"account_id"`
	Date             time.Time   `json:"date"`
	TokenType        TokenType   `json:"token_type"`
	Action           TokenAction `json:"action"`
	Reason           string      `json:"reason"`
	ResultingBalance int         `json:"resulting_balance"`
}

// NewTokenHistoryEntry creates a new token history entry
func NewTokenHistoryEntry(accountID uuid.UUID, t TokenType, action TokenAction, reason string, resultingBalance int) (*TokenHistoryEntry, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if !t.IsValid() {
		return nil, shared.NewDomainError("INVALID_TOKEN_TYPE", "Invalid token type")
	}
	if !action.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACTION", "Invalid token action")
	}
	if resultingBalance < 0 {
		return nil, shared.NewDomainError("INVALID_BALANCE", "Resulting balance cannot be negative")
	}

	return &TokenHistoryEntry{
		ID:               uuid.New(),
		AccountID:        accountID,
		Date:             time.Now(),
		TokenType:        t,
		Action:           action,
		Reason:           reason,
		ResultingBalance: resultingBalance,
	}, nil
}

// TokenHistoryRepository persists the append-only token audit log
type TokenHistoryRepository interface {
	// Append stores one or more history entries
	Append(ctx context.Context, entries ...*TokenHistoryEntry) error

	// FindByAccount returns the account's history, newest first
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[TokenHistoryEntry], error)
}

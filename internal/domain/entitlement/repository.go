package entitlement

import (
	"context"

	"github.com/google/uuid"
)

// ConnectionRepository persists bank connections.
// FindByID returns shared.ErrNotFound when the connection does not exist.
type ConnectionRepository interface {
	Save(ctx context.Context, conn *BankConnection) error
	Update(ctx context.Context, conn *BankConnection) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*BankConnection, error)
	FindByItemID(ctx context.Context, accountID uuid.UUID, itemID string) (*BankConnection, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID) (ConnectionSet, error)
}

// WalletRepository persists the per-account token wallet. Update must apply an
// optimistic-locking check on the aggregate version and return
// shared.ErrConcurrencyConflict when the stored version has moved on.
type WalletRepository interface {
	Save(ctx context.Context, wallet *TokenWallet) error
	Update(ctx context.Context, wallet *TokenWallet) error
	FindByAccount(ctx context.Context, accountID uuid.UUID) (*TokenWallet, error)
}

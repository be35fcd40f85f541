package shared

import (
	"context"

	"github.com/google/uuid"
)

// AccountLocker serializes mutating commands for a single account. Token
// balances, connection flags, and subscription state share one logical
// transaction boundary per account; near-simultaneous calls would otherwise
// lose updates.
type AccountLocker interface {
	// WithLock runs fn while holding the account's lock. It returns
	// ErrConcurrencyConflict when the lock cannot be acquired in time.
	WithLock(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context) error) error
}

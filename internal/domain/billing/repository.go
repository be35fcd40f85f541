package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriptionRepository persists subscription aggregates
type SubscriptionRepository interface {
	// Save persists a new subscription
	Save(ctx context.Context, sub *Subscription) error

	// Update persists changes to an existing subscription using optimistic
	// locking; returns shared.ErrConcurrencyConflict on a version mismatch
	Update(ctx context.Context, sub *Subscription) error

	// FindByAccount returns the account's subscription, or
	// shared.ErrNotFound when the account never subscribed
	FindByAccount(ctx context.Context, accountID uuid.UUID) (*Subscription, error)

	// FindDueForRenewal returns subscriptions whose billing period ends at or
	// before the cutoff, for the renewal scheduler
	FindDueForRenewal(ctx context.Context, cutoff time.Time, limit int) ([]*Subscription, error)

	// FindElapsedEnding returns ending subscriptions whose period has elapsed,
	// for the teardown scheduler
	FindElapsedEnding(ctx context.Context, cutoff time.Time, limit int) ([]*Subscription, error)
}

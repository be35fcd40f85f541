package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// InMemoryAccountLocker implements shared.AccountLocker for single-instance
// deployments and tests. Locks are per-account channels.
type InMemoryAccountLocker struct {
	mu             sync.Mutex
	locks          map[uuid.UUID]chan struct{}
	acquireTimeout time.Duration
}

// NewInMemoryAccountLocker creates an in-process account locker
func NewInMemoryAccountLocker() *InMemoryAccountLocker {
	return &InMemoryAccountLocker{
		locks:          make(map[uuid.UUID]chan struct{}),
		acquireTimeout: defaultAcquireTimeout,
	}
}

func (l *InMemoryAccountLocker) lockChan(accountID uuid.UUID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.locks[accountID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[accountID] = ch
	}
	return ch
}

// WithLock runs fn while holding the account's lock
func (l *InMemoryAccountLocker) WithLock(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context) error) error {
	ch := l.lockChan(accountID)

	select {
	case ch <- struct{}{}:
	case <-time.After(l.acquireTimeout):
		return shared.ErrConcurrencyConflict
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-ch }()

	return fn(ctx)
}

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

func TestInMemoryAccountLocker(t *testing.T) {
	t.Run("runs the function under the lock", func(t *testing.T) {
		locker := NewInMemoryAccountLocker()
		ran := false

		err := locker.WithLock(context.Background(), uuid.New(), func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("propagates the function error", func(t *testing.T) {
		locker := NewInMemoryAccountLocker()
		boom := errors.New("boom")

		err := locker.WithLock(context.Background(), uuid.New(), func(ctx context.Context) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("serializes concurrent access to one account", func(t *testing.T) {
		locker := NewInMemoryAccountLocker()
		accountID := uuid.New()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = locker.WithLock(context.Background(), accountID, func(ctx context.Context) error {
					// Unsynchronized increment; the lock is the only guard
					v := counter
					time.Sleep(time.Millisecond)
					counter = v + 1
					return nil
				})
			}()
		}
		wg.Wait()

		assert.Equal(t, 20, counter)
	})

	t.Run("times out on a held lock", func(t *testing.T) {
		locker := NewInMemoryAccountLocker()
		locker.acquireTimeout = 20 * time.Millisecond
		accountID := uuid.New()

		release := make(chan struct{})
		held := make(chan struct{})
		go func() {
			_ = locker.WithLock(context.Background(), accountID, func(ctx context.Context) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held
		defer close(release)

		err := locker.WithLock(context.Background(), accountID, func(ctx context.Context) error {
			return nil
		})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("different accounts do not contend", func(t *testing.T) {
		locker := NewInMemoryAccountLocker()
		locker.acquireTimeout = 20 * time.Millisecond

		release := make(chan struct{})
		held := make(chan struct{})
		go func() {
			_ = locker.WithLock(context.Background(), uuid.New(), func(ctx context.Context) error {
				close(held)
				<-release
				return nil
			})
		}()
		<-held
		defer close(release)

		err := locker.WithLock(context.Background(), uuid.New(), func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)
	})
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/config"
)

const (
	lockKeyPrefix = "account:lock:"

	// lockTTL bounds how long a crashed holder can block an account
	lockTTL = 30 * time.Second

	defaultAcquireTimeout = 5 * time.Second
	acquireRetryInterval  = 50 * time.Millisecond
)

// releaseScript deletes the lock only if this process still holds it
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisAccountLocker implements shared.AccountLocker with a per-account Redis
// lock, so mutating commands stay serialized across instances.
type RedisAccountLocker struct {
	client         *redis.Client
	logger         *zap.Logger
	acquireTimeout time.Duration
}

// RedisAccountLockerOption configures a RedisAccountLocker
type RedisAccountLockerOption func(*RedisAccountLocker)

// WithAcquireTimeout bounds how long WithLock waits for a contended lock
func WithAcquireTimeout(d time.Duration) RedisAccountLockerOption {
	return func(l *RedisAccountLocker) {
		l.acquireTimeout = d
	}
}

// NewRedisAccountLocker creates a locker backed by a new Redis connection
func NewRedisAccountLocker(cfg config.RedisConfig, logger *zap.Logger, opts ...RedisAccountLockerOption) (*RedisAccountLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisAccountLockerWithClient(client, logger, opts...), nil
}

// NewRedisAccountLockerWithClient creates a locker with an existing Redis
// client, useful for testing or sharing a client across components
func NewRedisAccountLockerWithClient(client *redis.Client, logger *zap.Logger, opts ...RedisAccountLockerOption) *RedisAccountLocker {
	l := &RedisAccountLocker{
		client:         client,
		logger:         logger,
		acquireTimeout: defaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Close releases the underlying Redis connection
func (l *RedisAccountLocker) Close() error {
	return l.client.Close()
}

// WithLock runs fn while holding the account's lock. Acquisition polls with
// SET NX until the timeout, then gives up with ErrConcurrencyConflict.
func (l *RedisAccountLocker) WithLock(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context) error) error {
	key := lockKeyPrefix + accountID.String()
	holder := uuid.New().String()

	deadline := time.Now().Add(l.acquireTimeout)
	for {
		ok, err := l.client.SetNX(ctx, key, holder, lockTTL).Result()
		if err != nil {
			return fmt.Errorf("failed to acquire account lock: %w", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			l.logger.Warn("Account lock acquisition timed out",
				zap.String("account_id", accountID.String()))
			return shared.ErrConcurrencyConflict
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(acquireRetryInterval):
		}
	}

	defer func() {
		if err := releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, holder).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Failed to release account lock",
				zap.String("account_id", accountID.String()),
				zap.Error(err))
		}
	}()

	return fn(ctx)
}

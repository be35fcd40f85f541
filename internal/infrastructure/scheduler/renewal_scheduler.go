// Package scheduler runs the periodic billing jobs: cycle rollovers for due
// subscriptions and teardown of cancellations whose period has elapsed.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appbilling "github.com/ledgerlink/backend/internal/application/billing"
)

// RenewalSchedulerConfig holds configuration for the renewal scheduler
type RenewalSchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// CheckInterval is how often due subscriptions are looked up
	CheckInterval time.Duration

	// BatchSize caps how many subscriptions one pass processes
	BatchSize int

	// RunTimeout is the maximum time for a single pass
	RunTimeout time.Duration
}

// DefaultRenewalSchedulerConfig returns default configuration
func DefaultRenewalSchedulerConfig() RenewalSchedulerConfig {
	return RenewalSchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		BatchSize:     100,
		RunTimeout:    10 * time.Minute,
	}
}

// RenewalScheduler periodically rolls over due subscriptions and finalizes
// elapsed cancellations. Stripe webhooks drive the same transitions when they
// arrive; the scheduler is the catch-up path for missed or delayed events.
type RenewalScheduler struct {
	subscriptions *appbilling.SubscriptionService
	logger        *zap.Logger
	config        RenewalSchedulerConfig

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewRenewalScheduler creates a new renewal scheduler
func NewRenewalScheduler(
	subscriptions *appbilling.SubscriptionService,
	logger *zap.Logger,
	config RenewalSchedulerConfig,
) *RenewalScheduler {
	if config.CheckInterval <= 0 {
		config.CheckInterval = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 10 * time.Minute
	}
	return &RenewalScheduler{
		subscriptions: subscriptions,
		logger:        logger,
		config:        config,
	}
}

// Start starts the renewal scheduler
func (s *RenewalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Renewal scheduler is disabled")
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.logger.Info("Renewal scheduler started",
		zap.Duration("check_interval", s.config.CheckInterval),
		zap.Int("batch_size", s.config.BatchSize),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *RenewalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Renewal scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Renewal scheduler stop timed out")
		return ctx.Err()
	}
}

// run loops until the context is cancelled
func (s *RenewalScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Renewal loop stopping")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single renewal/teardown pass
func (s *RenewalScheduler) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	now := time.Now()
	if err := s.subscriptions.ProcessDueRenewals(runCtx, now, s.config.BatchSize); err != nil {
		s.logger.Error("Renewal pass failed", zap.Error(err))
	}
	if err := s.subscriptions.FinalizeElapsedEndings(runCtx, now, s.config.BatchSize); err != nil {
		s.logger.Error("Teardown pass failed", zap.Error(err))
	}
}

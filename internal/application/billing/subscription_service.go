package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/billing"
	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// SubscriptionServiceConfig contains configuration for SubscriptionService
type SubscriptionServiceConfig struct {
	PriceTable        billing.PriceTable
	SwapGrantPerCycle int
}

// DefaultSubscriptionServiceConfig returns default configuration
func DefaultSubscriptionServiceConfig() SubscriptionServiceConfig {
	return SubscriptionServiceConfig{
		PriceTable:        billing.DefaultPriceTable(),
		SwapGrantPerCycle: 1,
	}
}

// SubscriptionService drives the billing state machine and keeps the token
// wallet in step with it. Gateway calls happen before local state persists:
// a declined charge leaves nothing behind.
type SubscriptionService struct {
	subRepo     billing.SubscriptionRepository
	accountRepo identity.AccountRepository
	connRepo    entitlement.ConnectionRepository
	walletRepo  entitlement.WalletRepository
	historyRepo entitlement.TokenHistoryRepository
	gateway     billing.PaymentGateway
	bankLink    entitlement.BankLinkClient
	publisher   shared.EventPublisher
	locker      shared.AccountLocker
	tx          shared.TransactionManager
	logger      *zap.Logger

	prices    billing.PriceTable
	swapGrant int
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	subRepo billing.SubscriptionRepository,
	accountRepo identity.AccountRepository,
	connRepo entitlement.ConnectionRepository,
	walletRepo entitlement.WalletRepository,
	historyRepo entitlement.TokenHistoryRepository,
	gateway billing.PaymentGateway,
	bankLink entitlement.BankLinkClient,
	publisher shared.EventPublisher,
	locker shared.AccountLocker,
	tx shared.TransactionManager,
	logger *zap.Logger,
	config SubscriptionServiceConfig,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:     subRepo,
		accountRepo: accountRepo,
		connRepo:    connRepo,
		walletRepo:  walletRepo,
		historyRepo: historyRepo,
		gateway:     gateway,
		bankLink:    bankLink,
		publisher:   publisher,
		locker:      locker,
		tx:          tx,
		logger:      logger,
		prices:      config.PriceTable,
		swapGrant:   config.SwapGrantPerCycle,
	}
}

// SubscribeInput contains input for starting a subscription
type SubscribeInput struct {
	AccountID       uuid.UUID
	PaymentMethodID string
	Transaction     int
	Investment      int
}

// Subscribe starts the subscription: the processor is charged for the first
// month, the state machine enters first_month, and the wallet is filled with
// the purchased tokens plus the swap grant.
func (s *SubscriptionService) Subscribe(ctx context.Context, input SubscribeInput) (*SubscriptionDTO, error) {
	if input.AccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if input.PaymentMethodID == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is required")
	}

	quote, err := s.prices.Quote(billing.SelectedLimits{Transaction: input.Transaction, Investment: input.Investment})
	if err != nil {
		return nil, err
	}

	var dto *SubscriptionDTO
	err = s.locker.WithLock(ctx, input.AccountID, func(ctx context.Context) error {
		acc, err := s.accountRepo.FindByID(ctx, input.AccountID)
		if err != nil {
			return err
		}

		sub, err := s.subRepo.FindByAccount(ctx, input.AccountID)
		isNew := false
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			sub, err = billing.NewSubscription(input.AccountID)
			if err != nil {
				return err
			}
			isNew = true
		}

		// Guard before any gateway call so a double subscribe never charges.
		if sub.Status != billing.StatusUnsubscribed {
			return shared.NewDomainErrorWithDetails(
				shared.ErrCodeInvalidStateTransition,
				"Subscription already started",
				map[string]any{"from": string(sub.Status), "to": string(billing.StatusFirstMonth)},
			)
		}

		if acc.GatewayCustomerID == "" {
			customer, err := s.gateway.CreateCustomer(ctx, acc.Email)
			if err != nil {
				s.logger.Error("Failed to create gateway customer", zap.Error(err))
				return shared.NewDomainError("PAYMENT_FAILED", "Payment setup failed")
			}
			acc.AttachGatewayCustomer(customer.CustomerID)
			if err := s.accountRepo.Update(ctx, acc); err != nil {
				return err
			}
		}

		gwSub, err := s.gateway.StartSubscription(ctx, acc.GatewayCustomerID, input.PaymentMethodID, quote.Total)
		if err != nil {
			s.logger.Error("Failed to start gateway subscription", zap.Error(err))
			return shared.NewDomainError("PAYMENT_FAILED", "The first payment was declined")
		}

		now := time.Now()
		if err := sub.Subscribe(input.Transaction, input.Investment, now); err != nil {
			return err
		}
		sub.GatewaySubscriptionID = gwSub.SubscriptionID

		wallet, err := s.walletRepo.FindByAccount(ctx, input.AccountID)
		walletNew := false
		if err != nil {
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			wallet, err = entitlement.NewTokenWallet(input.AccountID)
			if err != nil {
				return err
			}
			walletNew = true
		}
		before := wallet.Balance
		if err := wallet.SetNextLimits(input.Transaction, input.Investment); err != nil {
			return err
		}
		if err := wallet.RefillForNextCycle(s.swapGrant); err != nil {
			return err
		}

		// The gateway has charged by now; subscription, wallet, and history
		// persist together so a failure leaves no local trace of the cycle.
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if isNew {
				if err := s.subRepo.Save(ctx, sub); err != nil {
					return err
				}
			} else {
				if err := s.subRepo.Update(ctx, sub); err != nil {
					return err
				}
			}
			if walletNew {
				if err := s.walletRepo.Save(ctx, wallet); err != nil {
					return err
				}
			} else {
				if err := s.walletRepo.Update(ctx, wallet); err != nil {
					return err
				}
			}
			return s.appendRefillHistory(ctx, wallet, before, "Subscription started")
		})
		if err != nil {
			return err
		}

		s.publishEvents(ctx, sub.GetDomainEvents(), wallet.GetDomainEvents())
		sub.ClearDomainEvents()
		wallet.ClearDomainEvents()

		dto = toSubscriptionDTO(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subscription started",
		zap.String("account_id", input.AccountID.String()),
		zap.Int("transaction", input.Transaction),
		zap.Int("investment", input.Investment),
		zap.String("total", quote.Total.String()))
	return dto, nil
}

// ProposeNextCycleLimits changes the limits purchased for the next cycle.
// The proposal is validated against the live connection set, the processor is
// repriced, and only then do the subscription and wallet record the change.
func (s *SubscriptionService) ProposeNextCycleLimits(ctx context.Context, accountID uuid.UUID, transaction, investment int) (*SubscriptionDTO, error) {
	quote, err := s.prices.Quote(billing.SelectedLimits{Transaction: transaction, Investment: investment})
	if err != nil {
		return nil, err
	}

	var dto *SubscriptionDTO
	err = s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		sub, err := s.findSubscription(ctx, accountID)
		if err != nil {
			return err
		}
		if err := sub.RequireEntitlementEdits(); err != nil {
			return err
		}

		conns, err := s.connRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := entitlement.ValidateProposedLimits(conns, transaction, investment); err != nil {
			return err
		}

		if err := s.gateway.UpdateSubscriptionAmount(ctx, sub.GatewaySubscriptionID, quote.Total); err != nil {
			s.logger.Error("Failed to reprice gateway subscription", zap.Error(err))
			return shared.NewDomainError("PAYMENT_FAILED", "Updating the subscription price failed")
		}

		if err := sub.SelectNextLimits(transaction, investment); err != nil {
			return err
		}

		wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := wallet.SetNextLimits(transaction, investment); err != nil {
			return err
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.subRepo.Update(ctx, sub); err != nil {
				return err
			}
			return s.walletRepo.Update(ctx, wallet)
		})
		if err != nil {
			return err
		}

		s.publishEvents(ctx, sub.GetDomainEvents(), wallet.GetDomainEvents())
		sub.ClearDomainEvents()
		wallet.ClearDomainEvents()

		dto = toSubscriptionDTO(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Next-cycle limits changed",
		zap.String("account_id", accountID.String()),
		zap.Int("transaction", transaction),
		zap.Int("investment", investment))
	return dto, nil
}

// Cancel schedules the subscription to end at the close of the billing period
func (s *SubscriptionService) Cancel(ctx context.Context, accountID uuid.UUID) (*SubscriptionDTO, error) {
	return s.transition(ctx, accountID, func(ctx context.Context, sub *billing.Subscription) error {
		if err := s.gateway.CancelAtPeriodEnd(ctx, sub.GatewaySubscriptionID); err != nil {
			s.logger.Error("Failed to cancel gateway subscription", zap.Error(err))
			return shared.NewDomainError("PAYMENT_FAILED", "Cancelling with the payment processor failed")
		}
		return sub.Cancel()
	})
}

// Keep undoes a cancellation before the billing period elapses
func (s *SubscriptionService) Keep(ctx context.Context, accountID uuid.UUID) (*SubscriptionDTO, error) {
	return s.transition(ctx, accountID, func(ctx context.Context, sub *billing.Subscription) error {
		if err := s.gateway.Resume(ctx, sub.GatewaySubscriptionID); err != nil {
			s.logger.Error("Failed to resume gateway subscription", zap.Error(err))
			return shared.NewDomainError("PAYMENT_FAILED", "Resuming with the payment processor failed")
		}
		return sub.Keep(time.Now())
	})
}

// FixPayment swaps the card on file and clears the payment_failed status
func (s *SubscriptionService) FixPayment(ctx context.Context, accountID uuid.UUID, paymentMethodID string) (*SubscriptionDTO, error) {
	if paymentMethodID == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is required")
	}

	return s.transition(ctx, accountID, func(ctx context.Context, sub *billing.Subscription) error {
		acc, err := s.accountRepo.FindByID(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.gateway.UpdatePaymentMethod(ctx, acc.GatewayCustomerID, paymentMethodID); err != nil {
			s.logger.Error("Failed to update payment method", zap.Error(err))
			return shared.NewDomainError("PAYMENT_FAILED", "The new payment method was declined")
		}
		return sub.FixPayment()
	})
}

// RecordPaymentFailure marks the subscription payment_failed. Driven by the
// processor's webhook when a renewal charge bounces.
func (s *SubscriptionService) RecordPaymentFailure(ctx context.Context, accountID uuid.UUID) (*SubscriptionDTO, error) {
	return s.transition(ctx, accountID, func(ctx context.Context, sub *billing.Subscription) error {
		return sub.RecordPaymentFailure()
	})
}

// RollOverCycle applies a successful renewal: flagged connections are removed
// for real, the billing period advances, and the wallet refills from the
// next-cycle limits plus the swap grant.
func (s *SubscriptionService) RollOverCycle(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	err := s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		sub, err := s.findSubscription(ctx, accountID)
		if err != nil {
			return err
		}

		// Advance the period first: an out-of-order or duplicated renewal
		// webhook must fail here, before any connection is destroyed.
		if err := sub.RenewalTick(now); err != nil {
			return err
		}

		conns, err := s.connRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		flagged := conns.Flagged()
		for _, conn := range flagged {
			if err := s.bankLink.RemoveItem(ctx, conn.AccessToken); err != nil {
				s.logger.Error("Failed to remove flagged item at provider",
					zap.String("connection_id", conn.ID.String()), zap.Error(err))
				return err
			}
		}

		wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		before := wallet.Balance
		if err := wallet.SetNextLimits(sub.CurrentLimits.Transaction, sub.CurrentLimits.Investment); err != nil {
			return err
		}
		if err := wallet.RefillForNextCycle(s.swapGrant); err != nil {
			return err
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			for _, conn := range flagged {
				if err := s.connRepo.Delete(ctx, conn.ID); err != nil {
					return err
				}
			}
			if err := s.subRepo.Update(ctx, sub); err != nil {
				return err
			}
			if err := s.walletRepo.Update(ctx, wallet); err != nil {
				return err
			}
			return s.appendRefillHistory(ctx, wallet, before, "Monthly refill")
		})
		if err != nil {
			return err
		}

		for _, conn := range flagged {
			s.publishEvents(ctx, []shared.DomainEvent{entitlement.NewConnectionRemovedEvent(conn, true)})
		}
		s.publishEvents(ctx, sub.GetDomainEvents(), wallet.GetDomainEvents())
		sub.ClearDomainEvents()
		wallet.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Billing cycle rolled over", zap.String("account_id", accountID.String()))
	return nil
}

// ProcessDueRenewals rolls over every subscription whose period has ended.
// Called by the scheduler; failures are logged per account and do not stop
// the batch.
func (s *SubscriptionService) ProcessDueRenewals(ctx context.Context, now time.Time, batchSize int) error {
	subs, err := s.subRepo.FindDueForRenewal(ctx, now, batchSize)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := s.RollOverCycle(ctx, sub.AccountID, now); err != nil {
			s.logger.Error("Renewal rollover failed",
				zap.String("account_id", sub.AccountID.String()), zap.Error(err))
		}
	}
	return nil
}

// TearDownElapsed finalizes a cancellation whose billing period has run out:
// every connection is unlinked at the provider and deleted, the wallet drains
// to zero, and the subscription returns to unsubscribed.
func (s *SubscriptionService) TearDownElapsed(ctx context.Context, accountID uuid.UUID, now time.Time) error {
	err := s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		sub, err := s.findSubscription(ctx, accountID)
		if err != nil {
			return err
		}

		// Validate the transition before touching connections so an early
		// or duplicated teardown leaves everything intact.
		if err := sub.Lapse(now); err != nil {
			return err
		}

		conns, err := s.connRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		for _, conn := range conns {
			if err := s.bankLink.RemoveItem(ctx, conn.AccessToken); err != nil {
				s.logger.Error("Failed to remove item at provider during teardown",
					zap.String("connection_id", conn.ID.String()), zap.Error(err))
				return err
			}
		}

		wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if err := wallet.SetNextLimits(0, 0); err != nil {
			return err
		}
		if err := wallet.RefillForNextCycle(0); err != nil {
			return err
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			for _, conn := range conns {
				if err := s.connRepo.Delete(ctx, conn.ID); err != nil {
					return err
				}
			}
			if err := s.subRepo.Update(ctx, sub); err != nil {
				return err
			}
			return s.walletRepo.Update(ctx, wallet)
		})
		if err != nil {
			return err
		}

		for _, conn := range conns {
			s.publishEvents(ctx, []shared.DomainEvent{entitlement.NewConnectionRemovedEvent(conn, true)})
		}
		s.publishEvents(ctx, sub.GetDomainEvents(), wallet.GetDomainEvents())
		sub.ClearDomainEvents()
		wallet.ClearDomainEvents()
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Elapsed subscription torn down", zap.String("account_id", accountID.String()))
	return nil
}

// FinalizeElapsedEndings tears down every ending subscription whose period
// has elapsed. Called by the scheduler; failures are logged per account and
// do not stop the batch.
func (s *SubscriptionService) FinalizeElapsedEndings(ctx context.Context, now time.Time, batchSize int) error {
	subs, err := s.subRepo.FindElapsedEnding(ctx, now, batchSize)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if err := s.TearDownElapsed(ctx, sub.AccountID, now); err != nil {
			s.logger.Error("Subscription teardown failed",
				zap.String("account_id", sub.AccountID.String()), zap.Error(err))
		}
	}
	return nil
}

// GetStatus returns the subscription state, or an unsubscribed placeholder
// for accounts that never subscribed
func (s *SubscriptionService) GetStatus(ctx context.Context, accountID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.subRepo.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &SubscriptionDTO{Status: string(billing.StatusUnsubscribed)}, nil
		}
		return nil, err
	}
	return toSubscriptionDTO(sub), nil
}

// QuotePricing prices a set of limits without touching any state
func (s *SubscriptionService) QuotePricing(ctx context.Context, transaction, investment int) (*PricingDTO, error) {
	quote, err := s.prices.Quote(billing.SelectedLimits{Transaction: transaction, Investment: investment})
	if err != nil {
		return nil, err
	}
	return toPricingDTO(quote), nil
}

func (s *SubscriptionService) transition(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, sub *billing.Subscription) error) (*SubscriptionDTO, error) {
	var dto *SubscriptionDTO
	err := s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		sub, err := s.findSubscription(ctx, accountID)
		if err != nil {
			return err
		}

		if err := fn(ctx, sub); err != nil {
			return err
		}

		if err := s.subRepo.Update(ctx, sub); err != nil {
			return err
		}

		s.publishEvents(ctx, sub.GetDomainEvents())
		sub.ClearDomainEvents()

		dto = toSubscriptionDTO(sub)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

func (s *SubscriptionService) findSubscription(ctx context.Context, accountID uuid.UUID) (*billing.Subscription, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	sub, err := s.subRepo.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_SUBSCRIBED", "No subscription exists for this account")
		}
		return nil, err
	}
	return sub, nil
}

// appendRefillHistory records one entry per counter the refill actually
// moved. A counter whose balance matches its pre-refill value gets no entry.
func (s *SubscriptionService) appendRefillHistory(ctx context.Context, wallet *entitlement.TokenWallet, before entitlement.TokenBalance, reason string) error {
	types := []entitlement.TokenType{
		entitlement.TokenTypeTransaction,
		entitlement.TokenTypeInvestment,
		entitlement.TokenTypeSwap,
	}
	prev := map[entitlement.TokenType]int{
		entitlement.TokenTypeTransaction: before.Transaction,
		entitlement.TokenTypeInvestment:  before.Investment,
		entitlement.TokenTypeSwap:        before.Swap,
	}
	entries := make([]*entitlement.TokenHistoryEntry, 0, len(types))
	for _, t := range types {
		balance := wallet.BalanceOf(t)
		if balance == prev[t] {
			continue
		}
		entry, err := entitlement.NewTokenHistoryEntry(
			wallet.AccountID, t, entitlement.TokenActionRefilled, reason, balance)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil
	}
	return s.historyRepo.Append(ctx, entries...)
}

func (s *SubscriptionService) publishEvents(ctx context.Context, eventSets ...[]shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	for _, events := range eventSets {
		if len(events) == 0 {
			continue
		}
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish domain events", zap.Error(err))
		}
	}
}

package entitlement

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/billing"
	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// EntitlementServiceConfig contains configuration for EntitlementService
type EntitlementServiceConfig struct {
	// SwapGrantPerCycle is the fixed number of swap tokens granted at each
	// cycle rollover
	SwapGrantPerCycle int
}

// DefaultEntitlementServiceConfig returns default configuration
func DefaultEntitlementServiceConfig() EntitlementServiceConfig {
	return EntitlementServiceConfig{SwapGrantPerCycle: 1}
}

// EntitlementService wires bank-connection management to the token wallet.
// Every mutating command runs under the account lock so flag toggles, limit
// edits, and token movements for one account serialize.
type EntitlementService struct {
	connRepo    entitlement.ConnectionRepository
	walletRepo  entitlement.WalletRepository
	historyRepo entitlement.TokenHistoryRepository
	subRepo     billing.SubscriptionRepository
	bankLink    entitlement.BankLinkClient
	publisher   shared.EventPublisher
	locker      shared.AccountLocker
	tx          shared.TransactionManager
	logger      *zap.Logger

	swapGrant int
}

// NewEntitlementService creates a new EntitlementService
func NewEntitlementService(
	connRepo entitlement.ConnectionRepository,
	walletRepo entitlement.WalletRepository,
	historyRepo entitlement.TokenHistoryRepository,
	subRepo billing.SubscriptionRepository,
	bankLink entitlement.BankLinkClient,
	publisher shared.EventPublisher,
	locker shared.AccountLocker,
	tx shared.TransactionManager,
	logger *zap.Logger,
	config EntitlementServiceConfig,
) *EntitlementService {
	return &EntitlementService{
		connRepo:    connRepo,
		walletRepo:  walletRepo,
		historyRepo: historyRepo,
		subRepo:     subRepo,
		bankLink:    bankLink,
		publisher:   publisher,
		locker:      locker,
		tx:          tx,
		logger:      logger,
		swapGrant:   config.SwapGrantPerCycle,
	}
}

// CreateLinkToken mints a provider token that initializes the bank-linking
// widget for the account
func (s *EntitlementService) CreateLinkToken(ctx context.Context, accountID uuid.UUID) (string, error) {
	if accountID == uuid.Nil {
		return "", shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	return s.bankLink.CreateLinkToken(ctx, accountID.String())
}

// AddConnectionInput contains input for linking a bank
type AddConnectionInput struct {
	AccountID      uuid.UUID
	PublicToken    string
	BilledProducts []string
}

// AddConnection exchanges the widget's public token for a durable item,
// consumes one token per billed product, and registers the connection. The
// whole command is all-or-nothing: a failed consumption leaves no connection
// behind.
func (s *EntitlementService) AddConnection(ctx context.Context, input AddConnectionInput) (*ConnectionDTO, error) {
	if input.AccountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if input.PublicToken == "" {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Public token cannot be empty")
	}

	products := make([]entitlement.ProductType, 0, len(input.BilledProducts))
	for _, raw := range input.BilledProducts {
		p, ok := entitlement.ParseProductType(raw)
		if !ok {
			return nil, shared.NewDomainError("INVALID_PRODUCTS", "Invalid product type: "+raw)
		}
		products = append(products, p)
	}

	var dto *ConnectionDTO
	err := s.locker.WithLock(ctx, input.AccountID, func(ctx context.Context) error {
		if err := s.requireEditableSubscription(ctx, input.AccountID); err != nil {
			return err
		}

		wallet, err := s.walletRepo.FindByAccount(ctx, input.AccountID)
		if err != nil {
			return err
		}

		// Check coverage for every billed product before touching the
		// wallet, so a partial consumption never persists.
		for _, p := range products {
			if wallet.BalanceOf(p.TokenType()) < 1 {
				return shared.NewDomainErrorWithDetails(
					shared.ErrCodeInsufficientTokens,
					"Not enough "+p.String()+" tokens to link this bank",
					map[string]any{"token_type": p.String(), "balance": wallet.BalanceOf(p.TokenType()), "required": 1},
				)
			}
		}

		item, err := s.bankLink.ExchangePublicToken(ctx, input.PublicToken)
		if err != nil {
			s.logger.Error("Failed to exchange public token", zap.Error(err))
			return shared.NewDomainError("LINK_FAILED", "Bank linking failed")
		}

		existing, err := s.connRepo.FindByItemID(ctx, input.AccountID, item.ItemID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if existing != nil {
			return shared.NewDomainError(shared.ErrCodeDuplicateConnection, "This bank is already connected")
		}

		conn, err := entitlement.NewBankConnection(input.AccountID, item.ItemID, item.InstitutionName, products)
		if err != nil {
			return err
		}
		conn.AccessToken = item.AccessToken

		var history []*entitlement.TokenHistoryEntry
		for _, p := range products {
			if err := wallet.Consume(p.TokenType(), 1); err != nil {
				return err
			}
			entry, err := entitlement.NewTokenHistoryEntry(
				input.AccountID, p.TokenType(), entitlement.TokenActionConsumed,
				"Linked "+item.InstitutionName, wallet.BalanceOf(p.TokenType()),
			)
			if err != nil {
				return err
			}
			history = append(history, entry)
		}

		// All three writes commit together or not at all.
		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.connRepo.Save(ctx, conn); err != nil {
				return err
			}
			if err := s.walletRepo.Update(ctx, wallet); err != nil {
				return err
			}
			return s.historyRepo.Append(ctx, history...)
		})
		if err != nil {
			return err
		}

		s.publishEvents(ctx, conn.GetDomainEvents(), wallet.GetDomainEvents())
		conn.ClearDomainEvents()
		wallet.ClearDomainEvents()

		d := toConnectionDTO(conn)
		dto = &d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bank connection added",
		zap.String("account_id", input.AccountID.String()),
		zap.String("connection_id", dto.ID.String()),
		zap.Strings("products", dto.BilledProducts))
	return dto, nil
}

// ListConnections returns the account's bank connections
func (s *EntitlementService) ListConnections(ctx context.Context, accountID uuid.UUID) ([]ConnectionDTO, error) {
	conns, err := s.connRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	dtos := make([]ConnectionDTO, len(conns))
	for i, c := range conns {
		dtos[i] = toConnectionDTO(c)
	}
	return dtos, nil
}

// RemoveConnection disconnects a bank immediately, distinct from flagging for
// removal at rollover. Consumed tokens are not refunded; when the removal
// would strand a depleted token type, the returned swap offer lists the ways
// one or two swap tokens could reclaim coverage.
func (s *EntitlementService) RemoveConnection(ctx context.Context, accountID, connectionID uuid.UUID) (*SwapOfferDTO, error) {
	var offer *SwapOfferDTO
	err := s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		conn, err := s.findOwnedConnection(ctx, accountID, connectionID)
		if err != nil {
			return err
		}

		wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}

		// Eligibility is computed against the pre-removal state so the
		// caller can still confirm a swap afterwards.
		offer = toSwapOfferDTO(entitlement.SwapEligibility(wallet, conn))

		if err := s.bankLink.RemoveItem(ctx, conn.AccessToken); err != nil {
			s.logger.Error("Failed to remove item at provider",
				zap.String("connection_id", connectionID.String()), zap.Error(err))
			return shared.NewDomainError("UNLINK_FAILED", "Disconnecting the bank failed")
		}

		if err := s.connRepo.Delete(ctx, conn.ID); err != nil {
			return err
		}

		event := entitlement.NewConnectionRemovedEvent(conn, false)
		s.publishEvents(ctx, []shared.DomainEvent{event})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Bank connection removed",
		zap.String("account_id", accountID.String()),
		zap.String("connection_id", connectionID.String()),
		zap.Bool("swap_offered", offer != nil))
	return offer, nil
}

// SetRemovalFlag marks or unmarks a connection for removal at the next
// rollover. Flagging is a pure state change; token balances are untouched.
func (s *EntitlementService) SetRemovalFlag(ctx context.Context, accountID, connectionID uuid.UUID, flagged bool) error {
	return s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		conn, err := s.findOwnedConnection(ctx, accountID, connectionID)
		if err != nil {
			return err
		}

		before := conn.GetVersion()
		conn.SetRemovalFlag(flagged)
		if conn.GetVersion() == before {
			return nil // no-op, already in the requested state
		}

		if err := s.connRepo.Update(ctx, conn); err != nil {
			return err
		}

		s.publishEvents(ctx, conn.GetDomainEvents())
		conn.ClearDomainEvents()
		return nil
	})
}

// ConsumeToken spends one current-cycle token of the given type
func (s *EntitlementService) ConsumeToken(ctx context.Context, accountID uuid.UUID, tokenType string, reason string) (*BalanceDTO, error) {
	t, ok := entitlement.ParseTokenType(tokenType)
	if !ok {
		return nil, shared.NewDomainError("INVALID_TOKEN_TYPE", "Invalid token type: "+tokenType)
	}

	var dto *BalanceDTO
	err := s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}

		if err := wallet.Consume(t, 1); err != nil {
			return err
		}

		entry, err := entitlement.NewTokenHistoryEntry(
			accountID, t, entitlement.TokenActionConsumed, reason, wallet.BalanceOf(t))
		if err != nil {
			return err
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.walletRepo.Update(ctx, wallet); err != nil {
				return err
			}
			return s.historyRepo.Append(ctx, entry)
		})
		if err != nil {
			return err
		}

		s.publishEvents(ctx, wallet.GetDomainEvents())
		wallet.ClearDomainEvents()

		dto = &BalanceDTO{Current: wallet.Balance, NextLimits: wallet.NextLimits}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ApplySwap confirms a swap: one swap token per requested product type is
// spent and one token of each requested type is received. The request must
// match a depletion; swapping into a type with remaining balance is rejected.
func (s *EntitlementService) ApplySwap(ctx context.Context, accountID uuid.UUID, productTypes []string) (*BalanceDTO, error) {
	products := make([]entitlement.ProductType, 0, len(productTypes))
	for _, raw := range productTypes {
		p, ok := entitlement.ParseProductType(raw)
		if !ok {
			return nil, shared.NewDomainError("INVALID_PRODUCTS", "Invalid product type: "+raw)
		}
		products = append(products, p)
	}

	var dto *BalanceDTO
	err := s.locker.WithLock(ctx, accountID, func(ctx context.Context) error {
		wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
		if err != nil {
			return err
		}

		if err := entitlement.ValidateSwapRequest(wallet, products); err != nil {
			return err
		}

		cost := len(products)
		if err := wallet.Consume(entitlement.TokenTypeSwap, cost); err != nil {
			return err
		}

		history := []*entitlement.TokenHistoryEntry{}
		swapEntry, err := entitlement.NewTokenHistoryEntry(
			accountID, entitlement.TokenTypeSwap, entitlement.TokenActionSwapped,
			"Swap spent", wallet.Balance.Swap)
		if err != nil {
			return err
		}
		history = append(history, swapEntry)

		for _, p := range products {
			if err := wallet.Refund(p.TokenType(), 1); err != nil {
				return err
			}
			entry, err := entitlement.NewTokenHistoryEntry(
				accountID, p.TokenType(), entitlement.TokenActionSwapped,
				"Swap received", wallet.BalanceOf(p.TokenType()))
			if err != nil {
				return err
			}
			history = append(history, entry)
		}

		err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.walletRepo.Update(ctx, wallet); err != nil {
				return err
			}
			return s.historyRepo.Append(ctx, history...)
		})
		if err != nil {
			return err
		}

		s.publishEvents(ctx, wallet.GetDomainEvents())
		wallet.ClearDomainEvents()

		dto = &BalanceDTO{Current: wallet.Balance, NextLimits: wallet.NextLimits}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swap applied",
		zap.String("account_id", accountID.String()),
		zap.Strings("products", productTypes))
	return dto, nil
}

// GetBalance returns the wallet's current balances and next-cycle limits
func (s *EntitlementService) GetBalance(ctx context.Context, accountID uuid.UUID) (*BalanceDTO, error) {
	wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalanceDTO{Current: wallet.Balance, NextLimits: wallet.NextLimits}, nil
}

// GetHistory returns a page of the token audit log, newest first
func (s *EntitlementService) GetHistory(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[HistoryEntryDTO], error) {
	page, err := s.historyRepo.FindByAccount(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[HistoryEntryDTO]{}, err
	}

	dtos := make([]HistoryEntryDTO, len(page.Items))
	for i, e := range page.Items {
		dtos[i] = toHistoryEntryDTO(e)
	}
	return shared.NewPaginated(dtos, page.Total, page.Page, page.PageSize), nil
}

// GetMinimums returns the lowest next-cycle limits the connection set allows
func (s *EntitlementService) GetMinimums(ctx context.Context, accountID uuid.UUID) (*MinimumsDTO, error) {
	conns, err := s.connRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	min := entitlement.CurrentMinimums(conns)
	return &MinimumsDTO{Transaction: min.Transaction, Investment: min.Investment}, nil
}

// GetProjectedRenewal returns the spare tokens expected at the next renewal
func (s *EntitlementService) GetProjectedRenewal(ctx context.Context, accountID uuid.UUID) (*ProjectedRenewalDTO, error) {
	conns, err := s.connRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	proj := entitlement.CurrentProjectedRenewal(conns, wallet)
	return &ProjectedRenewalDTO{Transaction: proj.Transaction, Investment: proj.Investment}, nil
}

func (s *EntitlementService) findOwnedConnection(ctx context.Context, accountID, connectionID uuid.UUID) (*entitlement.BankConnection, error) {
	conn, err := s.connRepo.FindByID(ctx, connectionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.ErrCodeUnknownConnection, "Connection not found")
		}
		return nil, err
	}
	if conn.AccountID != accountID {
		return nil, shared.NewDomainError(shared.ErrCodeUnknownConnection, "Connection not found")
	}
	return conn, nil
}

// requireEditableSubscription rejects entitlement changes while the
// subscription is missing, failing payment, or ending
func (s *EntitlementService) requireEditableSubscription(ctx context.Context, accountID uuid.UUID) error {
	sub, err := s.subRepo.FindByAccount(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("SUBSCRIPTION_LOCKED", "An active subscription is required")
		}
		return err
	}
	return sub.RequireEntitlementEdits()
}

func (s *EntitlementService) publishEvents(ctx context.Context, eventSets ...[]shared.DomainEvent) {
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

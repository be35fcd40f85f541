package entitlement

import (
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeTokensConsumed    = "TokensConsumed"
	EventTypeTokensRefunded    = "TokensRefunded"
	EventTypeWalletRefilled    = "WalletRefilled"
	EventTypeNextLimitsChanged = "NextLimitsChanged"
)

// TokensConsumedEvent is published when tokens are spent
type TokensConsumedEvent struct {
	shared.BaseDomainEvent
	TokenType        TokenType `json:"token_type"`
	Count            int       `json:"count"`
	ResultingBalance int       `json:"resulting_balance"`
}

// NewTokensConsumedEvent creates a new TokensConsumedEvent
func NewTokensConsumedEvent(w *TokenWallet, t TokenType, count int) *TokensConsumedEvent {
	return &TokensConsumedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTokensConsumed, AggregateTypeTokenWallet, w.ID, w.AccountID),
		TokenType:        t,
		Count:            count,
		ResultingBalance: w.BalanceOf(t),
	}
}

// TokensRefundedEvent is published when tokens are returned to the wallet
type TokensRefundedEvent struct {
	shared.BaseDomainEvent
	TokenType        TokenType `json:"token_type"`
	Count            int       `json:"count"`
	ResultingBalance int       `json:"resulting_balance"`
}

// NewTokensRefundedEvent creates a new TokensRefundedEvent
func NewTokensRefundedEvent(w *TokenWallet, t TokenType, count int) *TokensRefundedEvent {
	return &TokensRefundedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTokensRefunded, AggregateTypeTokenWallet, w.ID, w.AccountID),
		TokenType:        t,
		Count:            count,
		ResultingBalance: w.BalanceOf(t),
	}
}

// WalletRefilledEvent is published at cycle rollover
type WalletRefilledEvent struct {
	shared.BaseDomainEvent
	Balance TokenBalance `json:"balance"`
}

// NewWalletRefilledEvent creates a new WalletRefilledEvent
func NewWalletRefilledEvent(w *TokenWallet) *WalletRefilledEvent {
	return &WalletRefilledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeWalletRefilled, AggregateTypeTokenWallet, w.ID, w.AccountID),
		Balance:         w.Balance,
	}
}

// NextLimitsChangedEvent is published when the paid-for next-cycle limits change
type NextLimitsChangedEvent struct {
	shared.BaseDomainEvent
	NextLimits NextCycleLimits `json:"next_limits"`
}

// NewNextLimitsChangedEvent creates a new NextLimitsChangedEvent
func NewNextLimitsChangedEvent(w *TokenWallet) *NextLimitsChangedEvent {
	return &NextLimitsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNextLimitsChanged, AggregateTypeTokenWallet, w.ID, w.AccountID),
		NextLimits:      w.NextLimits,
	}
}

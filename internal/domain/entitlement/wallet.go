package entitlement

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// TokenBalance is a snapshot of the three wallet counters
type TokenBalance struct {
	Transaction int `json:"transaction"`
	Investment  int `json:"investment"`
	Swap        int `json:"swap"`
}

// NextCycleLimits is the paid-for token count that takes effect at renewal.
// Swap tokens are a fixed per-cycle grant, not a purchasable limit.
type NextCycleLimits struct {
	Transaction int `json:"transaction"`
	Investment  int `json:"investment"`
}

// TokenWallet holds an account's current-cycle token balances and the
// next-cycle limits. One wallet exists per account.
//
// Hard invariant: no operation may leave a counter negative. Consume checks
// before mutating and fails without side effects.
type TokenWallet struct {
	shared.AccountAggregateRoot
	Balance    TokenBalance
	NextLimits NextCycleLimits
}

// NewTokenWallet creates an empty wallet for an account
func NewTokenWallet(accountID uuid.UUID) (*TokenWallet, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	return &TokenWallet{
		AccountAggregateRoot: shared.NewAccountAggregateRoot(accountID),
	}, nil
}

// BalanceOf returns the current-cycle balance of the given token type
func (w *TokenWallet) BalanceOf(t TokenType) int {
	switch t {
	case TokenTypeTransaction:
		return w.Balance.Transaction
	case TokenTypeInvestment:
		return w.Balance.Investment
	case TokenTypeSwap:
		return w.Balance.Swap
	}
	return 0
}

// NextLimitOf returns the next-cycle limit for the given product type
func (w *TokenWallet) NextLimitOf(p ProductType) int {
	switch p {
	case ProductTypeTransaction:
		return w.NextLimits.Transaction
	case ProductTypeInvestment:
		return w.NextLimits.Investment
	}
	return 0
}

// Consume decrements the current-cycle balance of the given token type.
// It fails with INSUFFICIENT_TOKENS and leaves the wallet untouched when the
// balance is below count.
func (w *TokenWallet) Consume(t TokenType, count int) error {
	if count <= 0 {
		return shared.NewDomainError("INVALID_COUNT", "Consume count must be positive")
	}
	if !t.IsValid() {
		return shared.NewDomainError("INVALID_TOKEN_TYPE", "Invalid token type")
	}

	balance := w.BalanceOf(t)
	if balance < count {
		return shared.NewDomainErrorWithDetails(
			shared.ErrCodeInsufficientTokens,
			fmt.Sprintf("Not enough %s tokens: have %d, need %d", t, balance, count),
			map[string]any{"token_type": string(t), "balance": balance, "required": count},
		)
	}

	w.add(t, -count)
	w.touch()

	w.AddDomainEvent(NewTokensConsumedEvent(w, t, count))
	return nil
}

// Refund increments the current-cycle balance of the given token type.
// There is no upper cap: swap refunds may push a balance above the paid-for
// limit until the next refill reconciles it.
func (w *TokenWallet) Refund(t TokenType, count int) error {
	if count <= 0 {
		return shared.NewDomainError("INVALID_COUNT", "Refund count must be positive")
	}
	if !t.IsValid() {
		return shared.NewDomainError("INVALID_TOKEN_TYPE", "Invalid token type")
	}

	w.add(t, count)
	w.touch()

	w.AddDomainEvent(NewTokensRefundedEvent(w, t, count))
	return nil
}

// SetNextLimits replaces the next-cycle limits. Policy validation against the
// connection set happens in the application layer before this is called.
func (w *TokenWallet) SetNextLimits(transaction, investment int) error {
	if transaction < 0 || investment < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Next-cycle limits cannot be negative")
	}

	w.NextLimits = NextCycleLimits{Transaction: transaction, Investment: investment}
	w.touch()

	w.AddDomainEvent(NewNextLimitsChangedEvent(w))
	return nil
}

// RefillForNextCycle applies the cycle rollover to the wallet: the current
// transaction/investment balances become the next-cycle limits and the swap
// balance resets to the plan's fixed per-cycle grant.
func (w *TokenWallet) RefillForNextCycle(swapGrant int) error {
	if swapGrant < 0 {
		return shared.NewDomainError("INVALID_SWAP_GRANT", "Swap grant cannot be negative")
	}

	w.Balance = TokenBalance{
		Transaction: w.NextLimits.Transaction,
		Investment:  w.NextLimits.Investment,
		Swap:        swapGrant,
	}
	w.touch()

	w.AddDomainEvent(NewWalletRefilledEvent(w))
	return nil
}

func (w *TokenWallet) add(t TokenType, delta int) {
	switch t {
	case TokenTypeTransaction:
		w.Balance.Transaction += delta
	case TokenTypeInvestment:
		w.Balance.Investment += delta
	case TokenTypeSwap:
		w.Balance.Swap += delta
	}
}

func (w *TokenWallet) touch() {
	w.UpdatedAt = time.Now()
	w.IncrementVersion()
}

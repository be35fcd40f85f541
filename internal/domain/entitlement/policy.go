package entitlement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// The entitlement policy is a set of pure functions over the connection set
// and the wallet. It performs no I/O and mutates nothing; the application
// layer is responsible for loading state and persisting decisions.

// MinimumNextCycleLimit returns the lowest next-cycle limit an account may
// select for a product type: one token per connection of that type not already
// flagged for removal. Flagged connections are excluded because they will be
// gone at rollover.
func MinimumNextCycleLimit(conns ConnectionSet, p ProductType) int {
	return conns.CountUnflagged(p)
}

// Minimums bundles the per-product minimum next-cycle limits
type Minimums struct {
	Transaction int `json:"transaction"`
	Investment  int `json:"investment"`
}

// CurrentMinimums computes the minimum limits for both product types
func CurrentMinimums(conns ConnectionSet) Minimums {
	return Minimums{
		Transaction: MinimumNextCycleLimit(conns, ProductTypeTransaction),
		Investment:  MinimumNextCycleLimit(conns, ProductTypeInvestment),
	}
}

// ValidateProposedLimits checks a proposed next-cycle limit pair against the
// connection-derived minimums. It fails with BELOW_MINIMUM carrying both
// minimums when either value is too low.
func ValidateProposedLimits(conns ConnectionSet, transaction, investment int) error {
	if transaction < 0 || investment < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Proposed limits cannot be negative")
	}

	min := CurrentMinimums(conns)
	if transaction < min.Transaction || investment < min.Investment {
		return shared.NewDomainErrorWithDetails(
			shared.ErrCodeBelowMinimum,
			fmt.Sprintf("Limits cannot go below your unflagged connections (transaction >= %d, investment >= %d)", min.Transaction, min.Investment),
			map[string]any{"min_transaction": min.Transaction, "min_investment": min.Investment},
		)
	}
	return nil
}

// ProjectedRenewal bundles the spare tokens available at the next renewal
type ProjectedRenewal struct {
	Transaction int `json:"transaction"`
	Investment  int `json:"investment"`
}

// ProjectedRenewalTokens returns the spare tokens of a product type the
// account will have at renewal, after each surviving (unflagged) connection
// reserves one. Never negative.
func ProjectedRenewalTokens(conns ConnectionSet, wallet *TokenWallet, p ProductType) int {
	spare := wallet.NextLimitOf(p) - conns.CountUnflagged(p)
	if spare < 0 {
		return 0
	}
	return spare
}

// CurrentProjectedRenewal computes the projected spare tokens for both types
func CurrentProjectedRenewal(conns ConnectionSet, wallet *TokenWallet) ProjectedRenewal {
	return ProjectedRenewal{
		Transaction: ProjectedRenewalTokens(conns, wallet, ProductTypeTransaction),
		Investment:  ProjectedRenewalTokens(conns, wallet, ProductTypeInvestment),
	}
}

// SwapOption is one way to spend swap tokens: receive one token of each listed
// product type at a cost of one swap token per type.
type SwapOption struct {
	Products []ProductType `json:"products"`
	Cost     int           `json:"cost"`
}

// SwapOffer is presented when disconnecting a bank would strand a depleted
// token type. The caller confirms one of the options via a separate command.
type SwapOffer struct {
	ConnectionID uuid.UUID    `json:"connection_id"`
	Options      []SwapOption `json:"options"`
}

// SwapEligibility decides whether removing the given connection should offer a
// swap. A product type qualifies when the connection bills it and the
// current-cycle balance of that type is zero: disconnecting would strand the
// depleted state with no token left to link a replacement. Options are capped
// by the swap balance: with fewer than two swap tokens the combined option is
// withheld, and with none there is no offer at all.
func SwapEligibility(wallet *TokenWallet, conn *BankConnection) *SwapOffer {
	if conn == nil || wallet.Balance.Swap == 0 {
		return nil
	}

	var depleted []ProductType
	for _, p := range conn.BilledProducts {
		if wallet.BalanceOf(p.TokenType()) == 0 {
			depleted = append(depleted, p)
		}
	}
	if len(depleted) == 0 {
		return nil
	}

	offer := &SwapOffer{ConnectionID: conn.ID}
	for _, p := range depleted {
		offer.Options = append(offer.Options, SwapOption{Products: []ProductType{p}, Cost: 1})
	}
	if len(depleted) == 2 && wallet.Balance.Swap >= 2 {
		offer.Options = append(offer.Options, SwapOption{Products: depleted, Cost: 2})
	}

	return offer
}

// ValidateSwapRequest checks that a requested swap is justified and payable:
// swap cost is one token per requested product type, each requested type must
// currently be depleted, and the swap balance must cover the total cost.
func ValidateSwapRequest(wallet *TokenWallet, products []ProductType) error {
	if len(products) == 0 {
		return shared.NewDomainError(shared.ErrCodeSwapUnavailable, "No product types requested for swap")
	}

	seen := make(map[ProductType]bool, len(products))
	for _, p := range products {
		if !p.IsValid() {
			return shared.NewDomainError("INVALID_PRODUCTS", "Invalid product type")
		}
		if seen[p] {
			return shared.NewDomainError("INVALID_PRODUCTS", "Duplicate product type")
		}
		seen[p] = true

		if wallet.BalanceOf(p.TokenType()) != 0 {
			return shared.NewDomainError(
				shared.ErrCodeSwapUnavailable,
				fmt.Sprintf("No depleted %s balance to justify a swap", p),
			)
		}
	}

	cost := len(products)
	if wallet.Balance.Swap < cost {
		return shared.NewDomainErrorWithDetails(
			shared.ErrCodeSwapUnavailable,
			fmt.Sprintf("Swap requires %d swap tokens, have %d", cost, wallet.Balance.Swap),
			map[string]any{"required": cost, "balance": wallet.Balance.Swap},
		)
	}

	return nil
}

package entitlement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

func TestMinimumNextCycleLimit(t *testing.T) {
	accountID := uuid.New()

	t.Run("equals unflagged connection count", func(t *testing.T) {
		a := newTestConnection(t, accountID, ProductTypeTransaction)
		b := newTestConnection(t, accountID, ProductTypeTransaction)
		c := newTestConnection(t, accountID, ProductTypeTransaction)
		c.SetRemovalFlag(true)
		set := ConnectionSet{a, b, c}

		assert.Equal(t, 2, MinimumNextCycleLimit(set, ProductTypeTransaction))
		assert.Equal(t, 0, MinimumNextCycleLimit(set, ProductTypeInvestment))
	})

	t.Run("empty set has zero minimums", func(t *testing.T) {
		min := CurrentMinimums(nil)
		assert.Equal(t, Minimums{}, min)
	})
}

func TestValidateProposedLimits(t *testing.T) {
	accountID := uuid.New()
	set := ConnectionSet{
		newTestConnection(t, accountID, ProductTypeTransaction),
		newTestConnection(t, accountID, ProductTypeTransaction),
		newTestConnection(t, accountID, ProductTypeInvestment),
	}

	t.Run("succeeds at or above the minimums", func(t *testing.T) {
		assert.NoError(t, ValidateProposedLimits(set, 2, 1))
		assert.NoError(t, ValidateProposedLimits(set, 5, 3))
	})

	t.Run("fails below either minimum with both minimums attached", func(t *testing.T) {
		err := ValidateProposedLimits(set, 1, 1)
		require.Error(t, err)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrCodeBelowMinimum, de.Code)
		assert.Equal(t, 2, de.Details["min_transaction"])
		assert.Equal(t, 1, de.Details["min_investment"])

		assert.Error(t, ValidateProposedLimits(set, 2, 0))
	})

	t.Run("flagging a connection lowers its minimum", func(t *testing.T) {
		err := ValidateProposedLimits(set, 1, 1)
		require.Error(t, err)

		set[0].SetRemovalFlag(true)
		defer set[0].SetRemovalFlag(false)
		assert.NoError(t, ValidateProposedLimits(set, 1, 1))
	})

	t.Run("rejects negatives", func(t *testing.T) {
		assert.Error(t, ValidateProposedLimits(set, -1, 1))
	})
}

func TestProjectedRenewalTokens(t *testing.T) {
	accountID := uuid.New()

	newSet := func(unflagged int) ConnectionSet {
		var set ConnectionSet
		for i := 0; i < unflagged; i++ {
			set = append(set, newTestConnection(t, accountID, ProductTypeTransaction))
		}
		return set
	}

	t.Run("spare tokens after surviving connections reserve theirs", func(t *testing.T) {
		w := newTestWallet(t)
		require.NoError(t, w.SetNextLimits(4, 0))
		assert.Equal(t, 1, ProjectedRenewalTokens(newSet(3), w, ProductTypeTransaction))
	})

	t.Run("clamped at zero when limit is below survivors", func(t *testing.T) {
		w := newTestWallet(t)
		require.NoError(t, w.SetNextLimits(2, 0))
		assert.Equal(t, 0, ProjectedRenewalTokens(newSet(3), w, ProductTypeTransaction))
	})

	t.Run("flagged connections do not reserve a token", func(t *testing.T) {
		w := newTestWallet(t)
		require.NoError(t, w.SetNextLimits(3, 0))
		set := newSet(3)
		set[0].SetRemovalFlag(true)
		assert.Equal(t, 1, ProjectedRenewalTokens(set, w, ProductTypeTransaction))
	})
}

func TestSwapEligibility(t *testing.T) {
	accountID := uuid.New()

	t.Run("transaction-only connection at zero balance offers transaction only", func(t *testing.T) {
		// 4 transaction connections, 1 flagged, tx balance 0, 1 swap token.
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 0, Investment: 2, Swap: 1}

		conn := newTestConnection(t, accountID, ProductTypeTransaction)

		offer := SwapEligibility(w, conn)
		require.NotNil(t, offer)
		require.Len(t, offer.Options, 1)
		assert.Equal(t, []ProductType{ProductTypeTransaction}, offer.Options[0].Products)
		assert.Equal(t, 1, offer.Options[0].Cost)
	})

	t.Run("no offer when the billed balance is positive", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 1, Swap: 1}

		conn := newTestConnection(t, accountID, ProductTypeTransaction)
		assert.Nil(t, SwapEligibility(w, conn))
	})

	t.Run("no offer without swap tokens", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 0, Swap: 0}

		conn := newTestConnection(t, accountID, ProductTypeTransaction)
		assert.Nil(t, SwapEligibility(w, conn))
	})

	t.Run("both types depleted with two swap tokens offers three choices", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 0, Investment: 0, Swap: 2}

		conn := newTestConnection(t, accountID, ProductTypeTransaction, ProductTypeInvestment)

		offer := SwapEligibility(w, conn)
		require.NotNil(t, offer)
		require.Len(t, offer.Options, 3)
		assert.Equal(t, 2, offer.Options[2].Cost)
		assert.Len(t, offer.Options[2].Products, 2)
	})

	t.Run("combined option withheld with a single swap token", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 0, Investment: 0, Swap: 1}

		conn := newTestConnection(t, accountID, ProductTypeTransaction, ProductTypeInvestment)

		offer := SwapEligibility(w, conn)
		require.NotNil(t, offer)
		assert.Len(t, offer.Options, 2)
		for _, opt := range offer.Options {
			assert.Equal(t, 1, opt.Cost)
		}
	})
}

func TestValidateSwapRequest(t *testing.T) {
	t.Run("both with one swap token fails", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 0, Investment: 0, Swap: 1}

		err := ValidateSwapRequest(w, []ProductType{ProductTypeTransaction, ProductTypeInvestment})
		require.Error(t, err)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrCodeSwapUnavailable, de.Code)
	})

	t.Run("single depleted type within balance succeeds", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 0, Investment: 1, Swap: 1}

		assert.NoError(t, ValidateSwapRequest(w, []ProductType{ProductTypeTransaction}))
	})

	t.Run("swapping a non-depleted type fails", func(t *testing.T) {
		w := newTestWallet(t)
		w.Balance = TokenBalance{Transaction: 2, Swap: 1}

		err := ValidateSwapRequest(w, []ProductType{ProductTypeTransaction})
		require.Error(t, err)

		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.ErrCodeSwapUnavailable, de.Code)
	})

	t.Run("empty request fails", func(t *testing.T) {
		w := newTestWallet(t)
		assert.Error(t, ValidateSwapRequest(w, nil))
	})
}

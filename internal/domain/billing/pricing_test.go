package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceTable_Quote(t *testing.T) {
	table := DefaultPriceTable()

	t.Run("itemizes connection costs plus fixed fees", func(t *testing.T) {
		b, err := table.Quote(SelectedLimits{Transaction: 4, Investment: 2})
		require.NoError(t, err)

		assert.True(t, b.TransactionCost.Equal(decimal.NewFromFloat(1.20)), "got %s", b.TransactionCost)
		assert.True(t, b.InvestmentCost.Equal(decimal.NewFromFloat(0.36)), "got %s", b.InvestmentCost)
		// 1.20 + 0.36 + 0.50 + 0.30 + 0.50
		assert.True(t, b.Total.Equal(decimal.NewFromFloat(2.86)), "got %s", b.Total)
	})

	t.Run("zero limits quote to zero with no fees", func(t *testing.T) {
		b, err := table.Quote(SelectedLimits{})
		require.NoError(t, err)
		assert.True(t, b.Total.IsZero(), "got %s", b.Total)
	})

	t.Run("single connection still pays all fixed fees", func(t *testing.T) {
		b, err := table.Quote(SelectedLimits{Transaction: 1})
		require.NoError(t, err)
		// 0.30 + 0.50 + 0.30 + 0.50
		assert.True(t, b.Total.Equal(decimal.NewFromFloat(1.60)), "got %s", b.Total)
	})

	t.Run("rejects negative limits", func(t *testing.T) {
		_, err := table.Quote(SelectedLimits{Transaction: -1})
		assert.Error(t, err)
	})
}

package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

func TestTokenHistoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTokenHistoryRepository(db)
	ctx := context.Background()

	accountID := uuid.New()
	otherAccount := uuid.New()

	appendEntry := func(t *testing.T, account uuid.UUID, tokenType entitlement.TokenType, action entitlement.TokenAction, reason string, balance int) *entitlement.TokenHistoryEntry {
		t.Helper()
		entry, err := entitlement.NewTokenHistoryEntry(account, tokenType, action, reason, balance)
		require.NoError(t, err)
		require.NoError(t, repo.Append(ctx, entry))
		return entry
	}

	appendEntry(t, accountID, entitlement.TokenTypeTransaction, entitlement.TokenActionRefilled, "Monthly refill", 3)
	appendEntry(t, accountID, entitlement.TokenTypeTransaction, entitlement.TokenActionConsumed, "Linked Chase", 2)
	last := appendEntry(t, accountID, entitlement.TokenTypeSwap, entitlement.TokenActionSwapped, "Swap spent", 0)
	appendEntry(t, otherAccount, entitlement.TokenTypeInvestment, entitlement.TokenActionConsumed, "Linked Vanguard", 0)

	t.Run("returns the account's entries newest first", func(t *testing.T) {
		page, err := repo.FindByAccount(ctx, accountID, shared.Filter{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		require.Len(t, page.Items, 3)
		assert.Equal(t, last.ID, page.Items[0].ID)
		assert.Equal(t, "Swap spent", page.Items[0].Reason)
		assert.Equal(t, entitlement.TokenActionSwapped, page.Items[0].Action)
	})

	t.Run("paginates", func(t *testing.T) {
		page, err := repo.FindByAccount(ctx, accountID, shared.Filter{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Items, 1)
	})

	t.Run("appends several entries at once", func(t *testing.T) {
		batchAccount := uuid.New()
		first, err := entitlement.NewTokenHistoryEntry(batchAccount, entitlement.TokenTypeTransaction, entitlement.TokenActionRefilled, "Monthly refill", 2)
		require.NoError(t, err)
		second, err := entitlement.NewTokenHistoryEntry(batchAccount, entitlement.TokenTypeInvestment, entitlement.TokenActionRefilled, "Monthly refill", 1)
		require.NoError(t, err)

		require.NoError(t, repo.Append(ctx, first, second))

		page, err := repo.FindByAccount(ctx, batchAccount, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("appending nothing is a no-op", func(t *testing.T) {
		assert.NoError(t, repo.Append(ctx))
	})

	t.Run("unknown account has an empty history", func(t *testing.T) {
		page, err := repo.FindByAccount(ctx, uuid.New(), shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(0), page.Total)
		assert.Empty(t, page.Items)
	})
}

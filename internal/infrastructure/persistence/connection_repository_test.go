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

func newPersistedConnection(t *testing.T, repo *GormConnectionRepository, accountID uuid.UUID, itemID string, products ...entitlement.ProductType) *entitlement.BankConnection {
	t.Helper()

	conn, err := entitlement.NewBankConnection(accountID, itemID, "First Platypus Bank", products)
	require.NoError(t, err)
	conn.AccessToken = "access-" + itemID
	conn.ClearDomainEvents()

	require.NoError(t, repo.Save(context.Background(), conn))
	return conn
}

func TestConnectionRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRepository(db)
	ctx := context.Background()

	t.Run("round trips billed products and access token", func(t *testing.T) {
		accountID := uuid.New()
		conn := newPersistedConnection(t, repo, accountID, "item-1",
			entitlement.ProductTypeTransaction, entitlement.ProductTypeInvestment)

		found, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.Equal(t, accountID, found.AccountID)
		assert.Equal(t, "item-1", found.ItemID)
		assert.Equal(t, "access-item-1", found.AccessToken)
		assert.Equal(t, "First Platypus Bank", found.InstitutionName)
		assert.Equal(t, []entitlement.ProductType{
			entitlement.ProductTypeTransaction,
			entitlement.ProductTypeInvestment,
		}, found.BilledProducts)
		assert.False(t, found.RemovalFlag)
	})

	t.Run("rejects a duplicate item for the same account", func(t *testing.T) {
		accountID := uuid.New()
		newPersistedConnection(t, repo, accountID, "item-dup", entitlement.ProductTypeTransaction)

		dup, err := entitlement.NewBankConnection(accountID, "item-dup", "First Platypus Bank",
			[]entitlement.ProductType{entitlement.ProductTypeTransaction})
		require.NoError(t, err)

		err = repo.Save(ctx, dup)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, shared.ErrCodeDuplicateConnection, domainErr.Code)
	})

	t.Run("allows the same item for a different account", func(t *testing.T) {
		newPersistedConnection(t, repo, uuid.New(), "item-shared", entitlement.ProductTypeTransaction)
		newPersistedConnection(t, repo, uuid.New(), "item-shared", entitlement.ProductTypeInvestment)
	})

	t.Run("finds by provider item id", func(t *testing.T) {
		accountID := uuid.New()
		conn := newPersistedConnection(t, repo, accountID, "item-2", entitlement.ProductTypeInvestment)

		found, err := repo.FindByItemID(ctx, accountID, "item-2")
		require.NoError(t, err)
		assert.Equal(t, conn.ID, found.ID)

		_, err = repo.FindByItemID(ctx, uuid.New(), "item-2")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("lists an account's connections oldest first", func(t *testing.T) {
		accountID := uuid.New()
		first := newPersistedConnection(t, repo, accountID, "item-a", entitlement.ProductTypeTransaction)
		second := newPersistedConnection(t, repo, accountID, "item-b", entitlement.ProductTypeTransaction)
		newPersistedConnection(t, repo, uuid.New(), "item-other", entitlement.ProductTypeTransaction)

		set, err := repo.FindByAccount(ctx, accountID)
		require.NoError(t, err)
		require.Len(t, set, 2)
		assert.Equal(t, first.ID, set[0].ID)
		assert.Equal(t, second.ID, set[1].ID)
	})
}

func TestConnectionRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRepository(db)
	ctx := context.Background()

	t.Run("persists removal flag changes", func(t *testing.T) {
		conn := newPersistedConnection(t, repo, uuid.New(), "item-flag", entitlement.ProductTypeTransaction)

		conn.SetRemovalFlag(true)
		require.NoError(t, repo.Update(ctx, conn))

		found, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.True(t, found.RemovalFlag)
	})

	t.Run("stale write returns concurrency conflict", func(t *testing.T) {
		conn := newPersistedConnection(t, repo, uuid.New(), "item-race", entitlement.ProductTypeTransaction)

		first, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)
		second, err := repo.FindByID(ctx, conn.ID)
		require.NoError(t, err)

		first.SetRemovalFlag(true)
		require.NoError(t, repo.Update(ctx, first))

		second.SetRemovalFlag(true)
		err = repo.Update(ctx, second)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestConnectionRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormConnectionRepository(db)
	ctx := context.Background()

	t.Run("removes the connection", func(t *testing.T) {
		conn := newPersistedConnection(t, repo, uuid.New(), "item-del", entitlement.ProductTypeTransaction)

		require.NoError(t, repo.Delete(ctx, conn.ID))

		_, err := repo.FindByID(ctx, conn.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("deleting a missing connection returns not found", func(t *testing.T) {
		err := repo.Delete(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

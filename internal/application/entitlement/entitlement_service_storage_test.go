package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/billing"
	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// brokenHistoryRepo fails every append, standing in for a write that dies
// after the connection and wallet have already been stored.
type brokenHistoryRepo struct {
	entitlement.TokenHistoryRepository
}

var errHistoryDown = errors.New("history store unavailable")

func (brokenHistoryRepo) Append(_ context.Context, _ ...*entitlement.TokenHistoryEntry) error {
	return errHistoryDown
}

// TestEntitlementService_AddConnection_Atomicity runs the command against real
// gorm-backed repositories and checks a mid-command failure leaves no partial
// state: no connection row and an unchanged wallet.
func TestEntitlementService_AddConnection_Atomicity(t *testing.T) {
	ctx := context.Background()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.AccountModel{},
		&models.BankConnectionModel{},
		&models.TokenWalletModel{},
		&models.TokenHistoryModel{},
		&models.SubscriptionModel{},
	))

	connRepo := persistence.NewGormConnectionRepository(db)
	walletRepo := persistence.NewGormWalletRepository(db)
	subRepo := persistence.NewGormSubscriptionRepository(db)
	historyRepo := brokenHistoryRepo{}
	txManager := persistence.NewGormTransactionManager(&persistence.Database{DB: db})

	accountID := uuid.New()

	sub, err := billing.NewSubscription(accountID)
	require.NoError(t, err)
	sub.Status = billing.StatusActive
	require.NoError(t, subRepo.Save(ctx, sub))

	wallet, err := entitlement.NewTokenWallet(accountID)
	require.NoError(t, err)
	require.NoError(t, wallet.SetNextLimits(2, 0))
	require.NoError(t, wallet.RefillForNextCycle(1))
	wallet.ClearDomainEvents()
	require.NoError(t, walletRepo.Save(ctx, wallet))

	svc := NewEntitlementService(
		connRepo, walletRepo, historyRepo, subRepo, &fakeBankLink{},
		nil, noopLocker{}, txManager, zap.NewNop(), DefaultEntitlementServiceConfig(),
	)

	_, err = svc.AddConnection(ctx, AddConnectionInput{
		AccountID:      accountID,
		PublicToken:    "public-chase",
		BilledProducts: []string{"transaction"},
	})
	require.ErrorIs(t, err, errHistoryDown)

	// The connection save and wallet update rolled back with the failure
	conns, err := connRepo.FindByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Empty(t, conns)

	stored, err := walletRepo.FindByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Balance.Transaction)
}

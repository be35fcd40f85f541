package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormWalletRepository implements entitlement.WalletRepository using GORM
type GormWalletRepository struct {
	db *gorm.DB
}

// NewGormWalletRepository creates a new GormWalletRepository
func NewGormWalletRepository(db *gorm.DB) *GormWalletRepository {
	return &GormWalletRepository{db: db}
}

// dbFor returns the context's transaction handle when one is open,
// the repository's own connection otherwise
func (r *GormWalletRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Save creates a new wallet row for an account
func (r *GormWalletRepository) Save(ctx context.Context, wallet *entitlement.TokenWallet) error {
	model := models.TokenWalletModelFromDomain(wallet)
	if err := r.dbFor(ctx).Create(model).Error; err != nil {
		return err
	}
	wallet.MarkPersisted()
	return nil
}

// Update updates the wallet with optimistic locking. Every token movement
// goes through here, so a stale write returns shared.ErrConcurrencyConflict
// rather than silently losing a balance change.
func (r *GormWalletRepository) Update(ctx context.Context, wallet *entitlement.TokenWallet) error {
	model := models.TokenWalletModelFromDomain(wallet)

	result := r.dbFor(ctx).
		Model(&models.TokenWalletModel{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.PersistedVersion()).
		Updates(map[string]any{
			"balance_transaction":    model.BalanceTransaction,
			"balance_investment":     model.BalanceInvestment,
			"balance_swap":           model.BalanceSwap,
			"next_limit_transaction": model.NextLimitTransaction,
			"next_limit_investment":  model.NextLimitInvestment,
			"version":                model.Version,
			"updated_at":             model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.dbFor(ctx).Model(&models.TokenWalletModel{}).Where("id = ?", wallet.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	wallet.MarkPersisted()
	return nil
}

// FindByAccount returns the account's wallet
func (r *GormWalletRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) (*entitlement.TokenWallet, error) {
	var model models.TokenWalletModel
	err := r.dbFor(ctx).First(&model, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	wallet := model.ToDomain()
	wallet.MarkPersisted()
	return wallet, nil
}

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormConnectionRepository implements entitlement.ConnectionRepository using GORM
type GormConnectionRepository struct {
	db *gorm.DB
}

// NewGormConnectionRepository creates a new GormConnectionRepository
func NewGormConnectionRepository(db *gorm.DB) *GormConnectionRepository {
	return &GormConnectionRepository{db: db}
}

// dbFor returns the context's transaction handle when one is open,
// the repository's own connection otherwise
func (r *GormConnectionRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Save creates a new bank connection. The (account_id, item_id) pair is
// unique, so re-linking the same institution item is rejected here as well
// as in the application layer.
func (r *GormConnectionRepository) Save(ctx context.Context, conn *entitlement.BankConnection) error {
	model := models.BankConnectionModelFromDomain(conn)
	result := r.dbFor(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "item_id"}},
			DoNothing: true,
		}).
		Create(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.ErrCodeDuplicateConnection, "This institution item is already linked")
	}
	conn.MarkPersisted()
	return nil
}

// Update updates an existing connection with optimistic locking
func (r *GormConnectionRepository) Update(ctx context.Context, conn *entitlement.BankConnection) error {
	model := models.BankConnectionModelFromDomain(conn)

	result := r.dbFor(ctx).
		Model(&models.BankConnectionModel{}).
		Where("id = ? AND version = ?", conn.ID, conn.PersistedVersion()).
		Updates(map[string]any{
			"access_token":    model.AccessToken,
			"billed_products": model.BilledProductsJSON,
			"removal_flag":    model.RemovalFlag,
			"version":         model.Version,
			"updated_at":      model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.dbFor(ctx).Model(&models.BankConnectionModel{}).Where("id = ?", conn.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	conn.MarkPersisted()
	return nil
}

// Delete removes a connection by id
func (r *GormConnectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.dbFor(ctx).Delete(&models.BankConnectionModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID returns the connection with the given id
func (r *GormConnectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*entitlement.BankConnection, error) {
	var model models.BankConnectionModel
	err := r.dbFor(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	conn := model.ToDomain()
	conn.MarkPersisted()
	return conn, nil
}

// FindByItemID returns the account's connection for a provider item id
func (r *GormConnectionRepository) FindByItemID(ctx context.Context, accountID uuid.UUID, itemID string) (*entitlement.BankConnection, error) {
	var model models.BankConnectionModel
	err := r.dbFor(ctx).
		First(&model, "account_id = ? AND item_id = ?", accountID, itemID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	conn := model.ToDomain()
	conn.MarkPersisted()
	return conn, nil
}

// FindByAccount returns all of the account's connections, oldest first
func (r *GormConnectionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) (entitlement.ConnectionSet, error) {
	var modelList []models.BankConnectionModel
	err := r.dbFor(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}

	set := make(entitlement.ConnectionSet, 0, len(modelList))
	for i := range modelList {
		conn := modelList[i].ToDomain()
		conn.MarkPersisted()
		set = append(set, conn)
	}
	return set, nil
}

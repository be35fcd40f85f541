package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormTokenHistoryRepository implements entitlement.TokenHistoryRepository
// using GORM. The log is append-only; there is no update or delete path.
type GormTokenHistoryRepository struct {
	db *gorm.DB
}

// NewGormTokenHistoryRepository creates a new GormTokenHistoryRepository
func NewGormTokenHistoryRepository(db *gorm.DB) *GormTokenHistoryRepository {
	return &GormTokenHistoryRepository{db: db}
}

// dbFor returns the context's transaction handle when one is open,
// the repository's own connection otherwise
func (r *GormTokenHistoryRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Append stores one or more history entries
func (r *GormTokenHistoryRepository) Append(ctx context.Context, entries ...*entitlement.TokenHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	modelList := make([]*models.TokenHistoryModel, 0, len(entries))
	for _, entry := range entries {
		modelList = append(modelList, models.TokenHistoryModelFromDomain(entry))
	}
	return r.dbFor(ctx).Create(modelList).Error
}

// FindByAccount returns the account's history, newest first
func (r *GormTokenHistoryRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[entitlement.TokenHistoryEntry], error) {
	var total int64
	err := r.dbFor(ctx).
		Model(&models.TokenHistoryModel{}).
		Where("account_id = ?", accountID).
		Count(&total).Error
	if err != nil {
		return shared.Paginated[entitlement.TokenHistoryEntry]{}, err
	}

	var modelList []models.TokenHistoryModel
	err = r.dbFor(ctx).
		Where("account_id = ?", accountID).
		Order("date DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&modelList).Error
	if err != nil {
		return shared.Paginated[entitlement.TokenHistoryEntry]{}, err
	}

	entries := make([]entitlement.TokenHistoryEntry, 0, len(modelList))
	for i := range modelList {
		entries = append(entries, modelList[i].ToDomain())
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	return shared.NewPaginated(entries, total, page, filter.Limit()), nil
}

package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerlink/backend/internal/domain/billing"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// dbFor returns the context's transaction handle when one is open,
// the repository's own connection otherwise
func (r *GormSubscriptionRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Save creates a new subscription row for an account
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	if err := r.dbFor(ctx).Create(model).Error; err != nil {
		return err
	}
	sub.MarkPersisted()
	return nil
}

// Update updates the subscription with optimistic locking
func (r *GormSubscriptionRepository) Update(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)

	result := r.dbFor(ctx).
		Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", sub.ID, sub.PersistedVersion()).
		Updates(map[string]any{
			"status":                    model.Status,
			"period_start":              model.PeriodStart,
			"period_end":                model.PeriodEnd,
			"renewal_date":              model.RenewalDate,
			"current_transaction_limit": model.CurrentTransactionLimit,
			"current_investment_limit":  model.CurrentInvestmentLimit,
			"next_transaction_limit":    model.NextTransactionLimit,
			"next_investment_limit":     model.NextInvestmentLimit,
			"pre_cancel_status":         model.PreCancelStatus,
			"gateway_subscription_id":   model.GatewaySubscriptionID,
			"version":                   model.Version,
			"updated_at":                model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.dbFor(ctx).Model(&models.SubscriptionModel{}).Where("id = ?", sub.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	sub.MarkPersisted()
	return nil
}

// FindByAccount returns the account's subscription
func (r *GormSubscriptionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	err := r.dbFor(ctx).First(&model, "account_id = ?", accountID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	sub := model.ToDomain()
	sub.MarkPersisted()
	return sub, nil
}

// FindDueForRenewal returns subscriptions whose renewal date has passed,
// oldest first, for the renewal scheduler
func (r *GormSubscriptionRepository) FindDueForRenewal(ctx context.Context, cutoff time.Time, limit int) ([]*billing.Subscription, error) {
	var modelList []models.SubscriptionModel
	err := r.dbFor(ctx).
		Where("status IN ? AND renewal_date <= ?",
			[]string{string(billing.StatusFirstMonth), string(billing.StatusActive)}, cutoff).
		Order("renewal_date ASC").
		Limit(limit).
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return toDomainSubscriptions(modelList), nil
}

// FindElapsedEnding returns ending subscriptions whose paid period has
// elapsed, for the teardown scheduler
func (r *GormSubscriptionRepository) FindElapsedEnding(ctx context.Context, cutoff time.Time, limit int) ([]*billing.Subscription, error) {
	var modelList []models.SubscriptionModel
	err := r.dbFor(ctx).
		Where("status = ? AND period_end <= ?", string(billing.StatusEnding), cutoff).
		Order("period_end ASC").
		Limit(limit).
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return toDomainSubscriptions(modelList), nil
}

func toDomainSubscriptions(modelList []models.SubscriptionModel) []*billing.Subscription {
	subs := make([]*billing.Subscription, 0, len(modelList))
	for i := range modelList {
		sub := modelList[i].ToDomain()
		sub.MarkPersisted()
		subs = append(subs, sub)
	}
	return subs
}

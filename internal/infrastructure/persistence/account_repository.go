package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/persistence/models"
)

// GormAccountRepository implements identity.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// dbFor returns the context's transaction handle when one is open,
// the repository's own connection otherwise
func (r *GormAccountRepository) dbFor(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return r.db.WithContext(ctx)
}

// Save creates a new account. The email column is unique, so a concurrent
// registration with the same address loses here even after the application
// layer's lookup passed.
func (r *GormAccountRepository) Save(ctx context.Context, acc *identity.Account) error {
	model := models.AccountModelFromDomain(acc)
	result := r.dbFor(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoNothing: true,
		}).
		Create(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}
	acc.MarkPersisted()
	return nil
}

// Update updates an existing account with optimistic locking
func (r *GormAccountRepository) Update(ctx context.Context, acc *identity.Account) error {
	model := models.AccountModelFromDomain(acc)

	result := r.dbFor(ctx).
		Model(&models.AccountModel{}).
		Where("id = ? AND version = ?", acc.ID, acc.PersistedVersion()).
		Updates(map[string]any{
			"email":                   model.Email,
			"display_name":            model.DisplayName,
			"password_hash":           model.PasswordHash,
			"status":                  model.Status,
			"gateway_customer_id":     model.GatewayCustomerID,
			"last_login_at":           model.LastLoginAt,
			"pending_email":           model.PendingEmail,
			"email_change_token":      model.EmailChangeToken,
			"email_change_expires_at": model.EmailChangeExpiresAt,
			"deletion_requested_at":   model.DeletionRequestedAt,
			"version":                 model.Version,
			"updated_at":              model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		r.dbFor(ctx).Model(&models.AccountModel{}).Where("id = ?", acc.ID).Count(&count)
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	acc.MarkPersisted()
	return nil
}

// Delete removes an account by id
func (r *GormAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.dbFor(ctx).Delete(&models.AccountModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID returns the account with the given id
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Account, error) {
	var model models.AccountModel
	err := r.dbFor(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acc := model.ToDomain()
	acc.MarkPersisted()
	return acc, nil
}

// FindByEmail returns the account with the given email, case-insensitively
func (r *GormAccountRepository) FindByEmail(ctx context.Context, email string) (*identity.Account, error) {
	var model models.AccountModel
	err := r.dbFor(ctx).
		First(&model, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acc := model.ToDomain()
	acc.MarkPersisted()
	return acc, nil
}

// FindByGatewayCustomerID returns the account attached to a payment
// processor customer, for webhook routing
func (r *GormAccountRepository) FindByGatewayCustomerID(ctx context.Context, customerID string) (*identity.Account, error) {
	if customerID == "" {
		return nil, shared.ErrNotFound
	}
	var model models.AccountModel
	err := r.dbFor(ctx).First(&model, "gateway_customer_id = ?", customerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acc := model.ToDomain()
	acc.MarkPersisted()
	return acc, nil
}

// FindByEmailChangeToken returns the account holding a pending email change token
func (r *GormAccountRepository) FindByEmailChangeToken(ctx context.Context, token string) (*identity.Account, error) {
	if token == "" {
		return nil, shared.ErrNotFound
	}
	var model models.AccountModel
	err := r.dbFor(ctx).First(&model, "email_change_token = ?", token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	acc := model.ToDomain()
	acc.MarkPersisted()
	return acc, nil
}

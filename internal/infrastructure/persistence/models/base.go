package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// PopulateAggregateRoot populates a domain BaseAggregateRoot from the persistence model
func (m *AggregateModel) PopulateAggregateRoot(a *shared.BaseAggregateRoot) {
	a.BaseEntity.ID = m.ID
	a.BaseEntity.CreatedAt = m.CreatedAt
	a.BaseEntity.UpdatedAt = m.UpdatedAt
	a.Version = m.Version
}

// AccountAggregateModel provides common persistence fields for account-scoped
// aggregate roots.
type AccountAggregateModel struct {
	AggregateModel
	AccountID uuid.UUID `gorm:"type:uuid;not null;index"`
}

// FromDomainAccountAggregateRoot populates AccountAggregateModel from domain AccountAggregateRoot
func (m *AccountAggregateModel) FromDomainAccountAggregateRoot(a shared.AccountAggregateRoot) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.AccountID = a.AccountID
}

// PopulateAccountAggregateRoot populates a domain AccountAggregateRoot from the persistence model
func (m *AccountAggregateModel) PopulateAccountAggregateRoot(a *shared.AccountAggregateRoot) {
	m.PopulateAggregateRoot(&a.BaseAggregateRoot)
	a.AccountID = m.AccountID
}

package models

import (
	"time"

	"github.com/ledgerlink/backend/internal/domain/identity"
)

// AccountModel is the persistence model for the Account aggregate.
type AccountModel struct {
	AggregateModel
	Email                string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName          string     `gorm:"type:varchar(100);not null"`
	PasswordHash         string     `gorm:"type:varchar(100);not null"`
	Status               string     `gorm:"type:varchar(20);not null;index"`
	GatewayCustomerID    string     `gorm:"type:varchar(100);index"`
	LastLoginAt          *time.Time `gorm:""`
	PendingEmail         string     `gorm:"type:varchar(255)"`
	EmailChangeToken     string     `gorm:"type:varchar(64);index"`
	EmailChangeExpiresAt *time.Time `gorm:""`
	DeletionRequestedAt  *time.Time `gorm:""`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// AccountModelFromDomain converts a domain Account to its persistence model
func AccountModelFromDomain(acc *identity.Account) *AccountModel {
	model := &AccountModel{
		Email:                acc.Email,
		DisplayName:          acc.DisplayName,
		PasswordHash:         acc.PasswordHash,
		Status:               string(acc.Status),
		GatewayCustomerID:    acc.GatewayCustomerID,
		LastLoginAt:          acc.LastLoginAt,
		PendingEmail:         acc.PendingEmail,
		EmailChangeToken:     acc.EmailChangeToken,
		EmailChangeExpiresAt: acc.EmailChangeExpiresAt,
		DeletionRequestedAt:  acc.DeletionRequestedAt,
	}
	model.FromDomainAggregateRoot(acc.BaseAggregateRoot)
	return model
}

// ToDomain converts the persistence model to a domain Account
func (m *AccountModel) ToDomain() *identity.Account {
	acc := &identity.Account{
		Email:                m.Email,
		DisplayName:          m.DisplayName,
		PasswordHash:         m.PasswordHash,
		Status:               identity.AccountStatus(m.Status),
		GatewayCustomerID:    m.GatewayCustomerID,
		LastLoginAt:          m.LastLoginAt,
		PendingEmail:         m.PendingEmail,
		EmailChangeToken:     m.EmailChangeToken,
		EmailChangeExpiresAt: m.EmailChangeExpiresAt,
		DeletionRequestedAt:  m.DeletionRequestedAt,
	}
	m.PopulateAggregateRoot(&acc.BaseAggregateRoot)
	return acc
}

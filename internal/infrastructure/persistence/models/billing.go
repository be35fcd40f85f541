package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/billing"
)

// SubscriptionModel is the persistence model for the Subscription aggregate.
// One row exists per account.
type SubscriptionModel struct {
	AggregateModel
	AccountID              uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	Status                 string     `gorm:"type:varchar(20);not null;index"`
	PeriodStart            *time.Time `gorm:""`
	PeriodEnd              *time.Time `gorm:"index"`
	RenewalDate            *time.Time `gorm:"index"`
	CurrentTransactionLimit int       `gorm:"not null;default:0"`
	CurrentInvestmentLimit  int       `gorm:"not null;default:0"`
	NextTransactionLimit    int       `gorm:"not null;default:0"`
	NextInvestmentLimit     int       `gorm:"not null;default:0"`
	PreCancelStatus        string     `gorm:"type:varchar(20)"`
	GatewaySubscriptionID  string     `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// SubscriptionModelFromDomain converts a domain Subscription to its persistence model
func SubscriptionModelFromDomain(sub *billing.Subscription) *SubscriptionModel {
	model := &SubscriptionModel{
		AccountID:               sub.AccountID,
		Status:                  string(sub.Status),
		CurrentTransactionLimit: sub.CurrentLimits.Transaction,
		CurrentInvestmentLimit:  sub.CurrentLimits.Investment,
		NextTransactionLimit:    sub.NextLimits.Transaction,
		NextInvestmentLimit:     sub.NextLimits.Investment,
		PreCancelStatus:         string(sub.PreCancelStatus),
		GatewaySubscriptionID:   sub.GatewaySubscriptionID,
	}
	model.FromDomainAggregateRoot(sub.BaseAggregateRoot)
	model.PeriodStart = timePtr(sub.PeriodStart)
	model.PeriodEnd = timePtr(sub.PeriodEnd)
	model.RenewalDate = timePtr(sub.RenewalDate)
	return model
}

// ToDomain converts the persistence model to a domain Subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	sub := &billing.Subscription{
		Status: billing.SubscriptionStatus(m.Status),
		CurrentLimits: billing.SelectedLimits{
			Transaction: m.CurrentTransactionLimit,
			Investment:  m.CurrentInvestmentLimit,
		},
		NextLimits: billing.SelectedLimits{
			Transaction: m.NextTransactionLimit,
			Investment:  m.NextInvestmentLimit,
		},
		PreCancelStatus:       billing.SubscriptionStatus(m.PreCancelStatus),
		GatewaySubscriptionID: m.GatewaySubscriptionID,
	}
	m.PopulateAggregateRoot(&sub.BaseAggregateRoot)
	sub.AccountID = m.AccountID
	sub.PeriodStart = timeVal(m.PeriodStart)
	sub.PeriodEnd = timeVal(m.PeriodEnd)
	sub.RenewalDate = timeVal(m.RenewalDate)
	return sub
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlink/backend/internal/domain/billing"
)

// SubscriptionDTO is the client-facing view of the billing state
type SubscriptionDTO struct {
	Status        string                 `json:"status"`
	PeriodStart   time.Time              `json:"period_start,omitzero"`
	PeriodEnd     time.Time              `json:"period_end,omitzero"`
	RenewalDate   time.Time              `json:"renewal_date,omitzero"`
	CurrentLimits billing.SelectedLimits `json:"current_limits"`
	NextLimits    billing.SelectedLimits `json:"next_limits"`
}

// PricingDTO itemizes the monthly cost of a set of limits
type PricingDTO struct {
	TransactionCost decimal.Decimal `json:"transaction_cost"`
	InvestmentCost  decimal.Decimal `json:"investment_cost"`
	ServerFee       decimal.Decimal `json:"server_fee"`
	ProcessorFee    decimal.Decimal `json:"processor_fee"`
	AppFee          decimal.Decimal `json:"app_fee"`
	Total           decimal.Decimal `json:"total"`
}

func toSubscriptionDTO(sub *billing.Subscription) *SubscriptionDTO {
	return &SubscriptionDTO{
		Status:        string(sub.Status),
		PeriodStart:   sub.PeriodStart,
		PeriodEnd:     sub.PeriodEnd,
		RenewalDate:   sub.RenewalDate,
		CurrentLimits: sub.CurrentLimits,
		NextLimits:    sub.NextLimits,
	}
}

func toPricingDTO(b billing.PricingBreakdown) *PricingDTO {
	return &PricingDTO{
		TransactionCost: b.TransactionCost,
		InvestmentCost:  b.InvestmentCost,
		ServerFee:       b.ServerFee,
		ProcessorFee:    b.ProcessorFee,
		AppFee:          b.AppFee,
		Total:           b.Total,
	}
}

package billing

import (
	"github.com/shopspring/decimal"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// PriceTable holds the per-unit rates used to price a monthly cycle.
// All amounts are in USD.
type PriceTable struct {
	TransactionConnection decimal.Decimal
	InvestmentConnection  decimal.Decimal
	ServerFee             decimal.Decimal
	ProcessorFee          decimal.Decimal
	AppFee                decimal.Decimal
}

// DefaultPriceTable returns the production rates
func DefaultPriceTable() PriceTable {
	return PriceTable{
		TransactionConnection: decimal.NewFromFloat(0.30),
		InvestmentConnection:  decimal.NewFromFloat(0.18),
		ServerFee:             decimal.NewFromFloat(0.50),
		ProcessorFee:          decimal.NewFromFloat(0.30),
		AppFee:                decimal.NewFromFloat(0.50),
	}
}

// PricingBreakdown itemizes the cost of one billing cycle
type PricingBreakdown struct {
	TransactionCost decimal.Decimal `json:"transaction_cost"`
	InvestmentCost  decimal.Decimal `json:"investment_cost"`
	ServerFee       decimal.Decimal `json:"server_fee"`
	ProcessorFee    decimal.Decimal `json:"processor_fee"`
	AppFee          decimal.Decimal `json:"app_fee"`
	Total           decimal.Decimal `json:"total"`
}

// Quote prices one monthly cycle for the given connection limits.
// Fixed fees apply in full whenever at least one connection is purchased.
func (p PriceTable) Quote(limits SelectedLimits) (PricingBreakdown, error) {
	if limits.Transaction < 0 || limits.Investment < 0 {
		return PricingBreakdown{}, shared.NewDomainError("INVALID_LIMIT", "Selected limits cannot be negative")
	}

	var b PricingBreakdown
	b.TransactionCost = p.TransactionConnection.Mul(decimal.NewFromInt(int64(limits.Transaction)))
	b.InvestmentCost = p.InvestmentConnection.Mul(decimal.NewFromInt(int64(limits.Investment)))

	if limits.Transaction+limits.Investment > 0 {
		b.ServerFee = p.ServerFee
		b.ProcessorFee = p.ProcessorFee
		b.AppFee = p.AppFee
	} else {
		b.ServerFee = decimal.Zero
		b.ProcessorFee = decimal.Zero
		b.AppFee = decimal.Zero
	}

	b.Total = b.TransactionCost.
		Add(b.InvestmentCost).
		Add(b.ServerFee).
		Add(b.ProcessorFee).
		Add(b.AppFee).
		Round(2)
	return b, nil
}

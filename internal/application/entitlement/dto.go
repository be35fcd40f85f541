package entitlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/entitlement"
)

// ConnectionDTO is the client-facing view of a bank connection
type ConnectionDTO struct {
	ID              uuid.UUID `json:"id"`
	InstitutionName string    `json:"institution_name"`
	BilledProducts  []string  `json:"billed_products"`
	RemovalFlag     bool      `json:"removal_flag"`
	CreatedAt       time.Time `json:"created_at"`
}

// BalanceDTO is the client-facing view of the token wallet
type BalanceDTO struct {
	Current    entitlement.TokenBalance    `json:"current"`
	NextLimits entitlement.NextCycleLimits `json:"next_limits"`
}

// MinimumsDTO reports the lowest allowed next-cycle limits
type MinimumsDTO struct {
	Transaction int `json:"min_transaction"`
	Investment  int `json:"min_investment"`
}

// ProjectedRenewalDTO reports the spare tokens available at the next renewal
type ProjectedRenewalDTO struct {
	Transaction int `json:"transaction"`
	Investment  int `json:"investment"`
}

// SwapOptionDTO is one confirmable way to spend swap tokens
type SwapOptionDTO struct {
	Products []string `json:"products"`
	Cost     int      `json:"cost"`
}

// SwapOfferDTO is returned from a removal that would strand a depleted token
// type; the client confirms one option via the swap command
type SwapOfferDTO struct {
	ConnectionID uuid.UUID       `json:"connection_id"`
	Options      []SwapOptionDTO `json:"options"`
}

// HistoryEntryDTO is one row of the token audit log
type HistoryEntryDTO struct {
	Date             time.Time `json:"date"`
	TokenType        string    `json:"token_type"`
	Action           string    `json:"action"`
	Reason           string    `json:"reason"`
	ResultingBalance int       `json:"resulting_balance"`
}

func toConnectionDTO(c *entitlement.BankConnection) ConnectionDTO {
	products := make([]string, len(c.BilledProducts))
	for i, p := range c.BilledProducts {
		products[i] = string(p)
	}
	return ConnectionDTO{
		ID:              c.ID,
		InstitutionName: c.InstitutionName,
		BilledProducts:  products,
		RemovalFlag:     c.RemovalFlag,
		CreatedAt:       c.CreatedAt,
	}
}

func toSwapOfferDTO(offer *entitlement.SwapOffer) *SwapOfferDTO {
	if offer == nil {
		return nil
	}
	dto := &SwapOfferDTO{ConnectionID: offer.ConnectionID}
	for _, opt := range offer.Options {
		products := make([]string, len(opt.Products))
		for i, p := range opt.Products {
			products[i] = string(p)
		}
		dto.Options = append(dto.Options, SwapOptionDTO{Products: products, Cost: opt.Cost})
	}
	return dto
}

func toHistoryEntryDTO(e entitlement.TokenHistoryEntry) HistoryEntryDTO {
	return HistoryEntryDTO{
		Date:             e.Date,
		TokenType:        string(e.TokenType),
		Action:           string(e.Action),
		Reason:           e.Reason,
		ResultingBalance: e.ResultingBalance,
	}
}

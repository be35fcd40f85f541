package entitlement

import (
	"context"
	"errors"
)

var (
	ErrLinkProviderUnavailable = errors.New("banklink: aggregation provider unavailable")
	ErrLinkInvalidPublicToken  = errors.New("banklink: invalid public token")
	ErrLinkItemNotFound        = errors.New("banklink: item not found")
)

// LinkedItem is the provider-side result of exchanging a public token after
// the user completes the bank-linking widget
type LinkedItem struct {
	ItemID          string
	InstitutionName string
	AccessToken     string
}

// BankLinkClient abstracts the bank aggregation provider. The widget runs
// client-side and hands back an opaque public token; the server exchanges it
// for a durable item.
type BankLinkClient interface {
	// CreateLinkToken mints a short-lived token that initializes the widget
	CreateLinkToken(ctx context.Context, accountRef string) (string, error)

	// ExchangePublicToken converts the widget's public token into a durable
	// provider item
	ExchangePublicToken(ctx context.Context, publicToken string) (*LinkedItem, error)

	// RemoveItem disconnects the item at the provider
	RemoveItem(ctx context.Context, accessToken string) error
}

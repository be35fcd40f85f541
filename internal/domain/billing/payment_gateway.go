package billing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrGatewayNotConfigured     = errors.New("payment: gateway not configured")
	ErrGatewayUnavailable       = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayRequestFailed     = errors.New("payment: gateway request failed")
	ErrGatewayCardDeclined      = errors.New("payment: card declined")
	ErrGatewayCustomerNotFound  = errors.New("payment: customer not found")
	ErrGatewayInvalidPaymentRef = errors.New("payment: invalid payment method reference")
)

// GatewayCustomer is the payment processor's handle for an account
type GatewayCustomer struct {
	CustomerID string
	Email      string
}

// GatewaySubscription is the processor-side view of a running subscription
type GatewaySubscription struct {
	SubscriptionID   string
	CustomerID       string
	MonthlyAmount    decimal.Decimal
	CurrentPeriodEnd time.Time
	CancelAtEnd      bool
}

// PaymentGateway abstracts the card-payment processor. Implementations live in
// the infrastructure layer; the application layer invokes them synchronously
// and persists local state only after the gateway call succeeds.
type PaymentGateway interface {
	// CreateCustomer registers the account with the processor
	CreateCustomer(ctx context.Context, email string) (*GatewayCustomer, error)

	// StartSubscription begins a monthly subscription billed at amount,
	// charging the payment method collected by the card widget
	StartSubscription(ctx context.Context, customerID, paymentMethodID string, amount decimal.Decimal) (*GatewaySubscription, error)

	// UpdateSubscriptionAmount reprices the monthly charge for the next cycle
	UpdateSubscriptionAmount(ctx context.Context, subscriptionID string, amount decimal.Decimal) error

	// CancelAtPeriodEnd schedules the subscription to stop after the current
	// period; Resume undoes it before the period elapses
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	Resume(ctx context.Context, subscriptionID string) error

	// UpdatePaymentMethod swaps the card on file, used to recover from a
	// failed renewal charge
	UpdatePaymentMethod(ctx context.Context, customerID, paymentMethodID string) error
}

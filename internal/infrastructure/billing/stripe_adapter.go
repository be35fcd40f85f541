package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/paymentmethod"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/billing"
)

// StripeAdapter implements billing.PaymentGateway against Stripe. Monthly
// amounts are per-account, so prices are created inline rather than
// referencing a fixed price catalog.
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreateCustomer registers the account with Stripe
func (a *StripeAdapter) CreateCustomer(ctx context.Context, email string) (*billing.GatewayCustomer, error) {
	a.logger.Debug("Creating Stripe customer", zap.String("email", email))

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe customer",
			zap.String("email", email),
			zap.Error(err))
		return nil, mapStripeError(err)
	}

	a.logger.Info("Created Stripe customer", zap.String("customer_id", cust.ID))

	return &billing.GatewayCustomer{
		CustomerID: cust.ID,
		Email:      cust.Email,
	}, nil
}

// StartSubscription begins a monthly subscription billed at amount, charging
// the payment method immediately. A declined card fails the call; nothing is
// created locally in that case.
func (a *StripeAdapter) StartSubscription(ctx context.Context, customerID, paymentMethodID string, amount decimal.Decimal) (*billing.GatewaySubscription, error) {
	a.logger.Debug("Creating Stripe subscription",
		zap.String("customer_id", customerID),
		zap.String("amount", amount.StringFixed(2)))

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{
				PriceData: a.monthlyPriceData(amount),
			},
		},
		DefaultPaymentMethod: stripe.String(paymentMethodID),
		// Fail the call on a declined card instead of leaving an
		// incomplete subscription behind
		PaymentBehavior: stripe.String("error_if_incomplete"),
	}
	params.Context = ctx

	sub, err := subscription.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe subscription",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return nil, mapStripeError(err)
	}

	a.logger.Info("Created Stripe subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))

	return &billing.GatewaySubscription{
		SubscriptionID:   sub.ID,
		CustomerID:       customerID,
		MonthlyAmount:    amount,
		CurrentPeriodEnd: time.Unix(sub.CurrentPeriodEnd, 0),
		CancelAtEnd:      sub.CancelAtPeriodEnd,
	}, nil
}

// UpdateSubscriptionAmount reprices the monthly charge. The new amount takes
// effect at the next invoice; the current period is never prorated.
func (a *StripeAdapter) UpdateSubscriptionAmount(ctx context.Context, subscriptionID string, amount decimal.Decimal) error {
	a.logger.Debug("Repricing Stripe subscription",
		zap.String("subscription_id", subscriptionID),
		zap.String("amount", amount.StringFixed(2)))

	sub, err := subscription.Get(subscriptionID, nil)
	if err != nil {
		return mapStripeError(err)
	}
	if len(sub.Items.Data) == 0 {
		return fmt.Errorf("stripe: subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:        stripe.String(sub.Items.Data[0].ID),
				PriceData: a.monthlyPriceData(amount),
			},
		},
		ProrationBehavior: stripe.String("none"),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		a.logger.Error("Failed to reprice Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return mapStripeError(err)
	}
	return nil
}

// CancelAtPeriodEnd schedules the subscription to stop after the current period
func (a *StripeAdapter) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	return a.setCancelAtPeriodEnd(ctx, subscriptionID, true)
}

// Resume undoes a scheduled cancellation before the period elapses
func (a *StripeAdapter) Resume(ctx context.Context, subscriptionID string) error {
	return a.setCancelAtPeriodEnd(ctx, subscriptionID, false)
}

func (a *StripeAdapter) setCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) error {
	a.logger.Debug("Setting Stripe cancel_at_period_end",
		zap.String("subscription_id", subscriptionID),
		zap.Bool("cancel", cancel))

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		a.logger.Error("Failed to update Stripe cancellation",
			zap.String("subscription_id", subscriptionID),
			zap.Bool("cancel", cancel),
			zap.Error(err))
		return mapStripeError(err)
	}
	return nil
}

// UpdatePaymentMethod swaps the card on file and makes it the default for
// future invoices
func (a *StripeAdapter) UpdatePaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	a.logger.Debug("Updating Stripe payment method",
		zap.String("customer_id", customerID))

	attachParams := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	attachParams.Context = ctx

	if _, err := paymentmethod.Attach(paymentMethodID, attachParams); err != nil {
		a.logger.Error("Failed to attach Stripe payment method",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return mapStripeError(err)
	}

	custParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(paymentMethodID),
		},
	}
	custParams.Context = ctx

	if _, err := customer.Update(customerID, custParams); err != nil {
		a.logger.Error("Failed to set default Stripe payment method",
			zap.String("customer_id", customerID),
			zap.Error(err))
		return mapStripeError(err)
	}
	return nil
}

// monthlyPriceData builds an inline monthly price on the configured product
func (a *StripeAdapter) monthlyPriceData(amount decimal.Decimal) *stripe.SubscriptionItemPriceDataParams {
	return &stripe.SubscriptionItemPriceDataParams{
		Currency:   stripe.String(a.config.Currency),
		Product:    stripe.String(a.config.ProductID),
		UnitAmount: stripe.Int64(toCents(amount)),
		Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		},
	}
}

// toCents converts a decimal dollar amount to Stripe's integer cents
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// mapStripeError translates Stripe errors into the domain's gateway errors so
// the application layer can react without importing Stripe types
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return fmt.Errorf("%w: %v", billing.ErrGatewayRequestFailed, err)
	}

	switch {
	case stripeErr.Code == stripe.ErrorCodeCardDeclined,
		stripeErr.Code == stripe.ErrorCodeExpiredCard,
		stripeErr.Code == stripe.ErrorCodeIncorrectCVC,
		stripeErr.Type == stripe.ErrorTypeCard:
		return fmt.Errorf("%w: %s", billing.ErrGatewayCardDeclined, stripeErr.Code)
	case stripeErr.Code == stripe.ErrorCodeResourceMissing && stripeErr.Param == "customer":
		return fmt.Errorf("%w: %s", billing.ErrGatewayCustomerNotFound, stripeErr.Msg)
	case stripeErr.Code == stripe.ErrorCodeResourceMissing && stripeErr.Param == "payment_method":
		return fmt.Errorf("%w: %s", billing.ErrGatewayInvalidPaymentRef, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorTypeAPI:
		return fmt.Errorf("%w: %s", billing.ErrGatewayUnavailable, stripeErr.Msg)
	case stripeErr.Type == stripe.ErrorType("authentication_error"):
		return fmt.Errorf("%w: %s", billing.ErrGatewayNotConfigured, stripeErr.Msg)
	default:
		return fmt.Errorf("%w: %s", billing.ErrGatewayRequestFailed, stripeErr.Msg)
	}
}

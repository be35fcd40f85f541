package billing

import (
	"fmt"

	"github.com/stripe/stripe-go/v81"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`

	// WebhookSecret is the secret for verifying webhook signatures
	WebhookSecret string `json:"webhook_secret" mapstructure:"webhook_secret"`

	// IsTestMode indicates if using Stripe test mode
	IsTestMode bool `json:"is_test_mode" mapstructure:"is_test_mode"`

	// Currency is the currency subscriptions are billed in
	Currency string `json:"currency" mapstructure:"currency"`

	// ProductID is the Stripe Product the monthly subscription price is
	// attached to. The amount itself is per-account, so prices are created
	// inline against this product.
	ProductID string `json:"product_id" mapstructure:"product_id"`
}

// DefaultStripeConfig returns a default configuration for development/testing
func DefaultStripeConfig() *StripeConfig {
	return &StripeConfig{
		IsTestMode: true,
		Currency:   "usd",
		ProductID:  "prod_ledgerlink_monthly",
	}
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	if c.IsTestMode {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_test" {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else {
		if len(c.SecretKey) > 7 && c.SecretKey[:7] != "sk_live" {
			return fmt.Errorf("stripe: live mode enabled but secret key is not a live key")
		}
	}

	if c.Currency == "" {
		return fmt.Errorf("stripe: currency is required")
	}
	if c.ProductID == "" {
		return fmt.Errorf("stripe: product id is required")
	}

	return nil
}

// InitStripeClient sets the global Stripe API key
func (c *StripeConfig) InitStripeClient() {
	stripe.Key = c.SecretKey
}

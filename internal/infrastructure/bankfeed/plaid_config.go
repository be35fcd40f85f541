package bankfeed

import "errors"

// Plaid environment hosts
const (
	plaidSandboxURL    = "https://sandbox.plaid.com"
	plaidProductionURL = "https://production.plaid.com"
)

// PlaidConfig contains configuration for the Plaid aggregation API
type PlaidConfig struct {
	// ClientID is the Plaid client identifier
	ClientID string `json:"client_id" mapstructure:"client_id"`
	// Secret is the environment-specific API secret
	Secret string `json:"secret" mapstructure:"secret"`
	// Environment selects the Plaid host: sandbox or production
	Environment string `json:"environment" mapstructure:"environment"`
	// WebhookURL receives item lifecycle notifications from Plaid
	WebhookURL string `json:"webhook_url" mapstructure:"webhook_url"`
}

// Errors for configuration validation
var (
	ErrPlaidMissingClientID = errors.New("plaid: missing client ID")
	ErrPlaidMissingSecret   = errors.New("plaid: missing secret")
	ErrPlaidBadEnvironment  = errors.New("plaid: environment must be sandbox or production")
)

// DefaultPlaidConfig returns a sandbox configuration for development
func DefaultPlaidConfig() *PlaidConfig {
	return &PlaidConfig{
		Environment: "sandbox",
	}
}

// Validate validates the configuration
func (c *PlaidConfig) Validate() error {
	if c.ClientID == "" {
		return ErrPlaidMissingClientID
	}
	if c.Secret == "" {
		return ErrPlaidMissingSecret
	}
	if c.Environment != "sandbox" && c.Environment != "production" {
		return ErrPlaidBadEnvironment
	}
	return nil
}

// BaseURL returns the API host for the configured environment
func (c *PlaidConfig) BaseURL() string {
	if c.Environment == "production" {
		return plaidProductionURL
	}
	return plaidSandboxURL
}

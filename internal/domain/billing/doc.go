// Package billing provides domain models for the subscription lifecycle and
// cycle pricing.
//
// This package implements the billing bounded context, which is responsible
// for:
//   - Tracking an account's subscription status through its state machine
//     (unsubscribed, first_month, active, payment_failed, ending)
//   - Gating entitlement edits on the current status
//   - Pricing a monthly cycle from the selected connection limits
//
// Key Aggregates:
//   - Subscription: The account's billing state, period, and selected limits
//
// Value Objects:
//   - SelectedLimits: Purchased connection counts for one cycle
//   - PriceTable / PricingBreakdown: Decimal cycle pricing
//
// The billing domain integrates with:
//   - Entitlement domain: Selected limits become the token wallet's
//     next-cycle limits, validated against the live connection set
package billing

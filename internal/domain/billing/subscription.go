package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// SubscriptionStatus represents the billing status of an account
type SubscriptionStatus string

const (
	// StatusUnsubscribed means no subscription has ever been started
	StatusUnsubscribed SubscriptionStatus = "unsubscribed"

	// StatusFirstMonth is the initial paid month after subscribing
	StatusFirstMonth SubscriptionStatus = "first_month"

	// StatusActive is the steady renewing state
	StatusActive SubscriptionStatus = "active"

	// StatusPaymentFailed means the last renewal charge failed and entitlement
	// edits are locked until the payment method is fixed
	StatusPaymentFailed SubscriptionStatus = "payment_failed"

	// StatusEnding means the user cancelled; service runs out at period end,
	// after which deletion is finalized by the backend job
	StatusEnding SubscriptionStatus = "ending"
)

// String returns the string representation of SubscriptionStatus
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case StatusUnsubscribed, StatusFirstMonth, StatusActive, StatusPaymentFailed, StatusEnding:
		return true
	}
	return false
}

// SelectedLimits is the purchased connection counts for one cycle
type SelectedLimits struct {
	Transaction int `json:"transaction"`
	Investment  int `json:"investment"`
}

// Subscription is the aggregate tracking an account's billing state machine,
// billing period, and the selected connection limits for the current and next
// cycle.
type Subscription struct {
	shared.AccountAggregateRoot
	Status        SubscriptionStatus
	PeriodStart   time.Time
	PeriodEnd     time.Time
	RenewalDate   time.Time
	CurrentLimits SelectedLimits
	NextLimits    SelectedLimits

	// PreCancelStatus remembers first_month vs active across Cancel so Keep
	// can restore the original status rather than always resuming active.
	PreCancelStatus SubscriptionStatus

	// GatewaySubscriptionID is the payment processor's subscription handle
	GatewaySubscriptionID string
}

// NewSubscription creates an unsubscribed subscription record for an account
func NewSubscription(accountID uuid.UUID) (*Subscription, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	return &Subscription{
		AccountAggregateRoot: shared.NewAccountAggregateRoot(accountID),
		Status:               StatusUnsubscribed,
	}, nil
}

// invalidTransition builds the typed failure for a disallowed status change
func invalidTransition(from, to SubscriptionStatus) error {
	return shared.NewDomainErrorWithDetails(
		shared.ErrCodeInvalidStateTransition,
		fmt.Sprintf("Cannot transition subscription from %s to %s", from, to),
		map[string]any{"from": string(from), "to": string(to)},
	)
}

// Subscribe starts the subscription. Allowed only from unsubscribed.
func (s *Subscription) Subscribe(transaction, investment int, periodStart time.Time) error {
	if s.Status != StatusUnsubscribed {
		return invalidTransition(s.Status, StatusFirstMonth)
	}
	if transaction < 0 || investment < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Selected limits cannot be negative")
	}

	s.Status = StatusFirstMonth
	s.PeriodStart = periodStart
	s.PeriodEnd = periodStart.AddDate(0, 1, 0)
	s.RenewalDate = s.PeriodEnd
	s.CurrentLimits = SelectedLimits{Transaction: transaction, Investment: investment}
	s.NextLimits = s.CurrentLimits
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, StatusUnsubscribed, StatusFirstMonth))
	return nil
}

// RenewalTick applies a successful renewal payment: the billing period rolls
// forward and the next-cycle limits become current. Allowed from first_month
// and active.
func (s *Subscription) RenewalTick(now time.Time) error {
	if s.Status != StatusFirstMonth && s.Status != StatusActive {
		return invalidTransition(s.Status, StatusActive)
	}

	old := s.Status
	s.Status = StatusActive
	s.PeriodStart = s.PeriodEnd
	s.PeriodEnd = s.PeriodStart.AddDate(0, 1, 0)
	s.RenewalDate = s.PeriodEnd
	s.CurrentLimits = s.NextLimits
	s.markChanged()

	if old != StatusActive {
		s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, old, StatusActive))
	}
	s.AddDomainEvent(NewSubscriptionRenewedEvent(s, now))
	return nil
}

// RecordPaymentFailure moves the subscription into payment_failed.
// Allowed from first_month and active.
func (s *Subscription) RecordPaymentFailure() error {
	if s.Status != StatusFirstMonth && s.Status != StatusActive {
		return invalidTransition(s.Status, StatusPaymentFailed)
	}

	old := s.Status
	s.Status = StatusPaymentFailed
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, old, StatusPaymentFailed))
	return nil
}

// FixPayment resolves a failed payment. Allowed only from payment_failed.
func (s *Subscription) FixPayment() error {
	if s.Status != StatusPaymentFailed {
		return invalidTransition(s.Status, StatusActive)
	}

	s.Status = StatusActive
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, StatusPaymentFailed, StatusActive))
	return nil
}

// Cancel schedules the subscription to end at the close of the current
// billing period. Allowed from first_month and active; cancelling an already
// ending subscription fails.
func (s *Subscription) Cancel() error {
	if s.Status != StatusFirstMonth && s.Status != StatusActive {
		return invalidTransition(s.Status, StatusEnding)
	}

	s.PreCancelStatus = s.Status
	old := s.Status
	s.Status = StatusEnding
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, old, StatusEnding))
	return nil
}

// Keep undoes a cancellation before the billing period elapses. The
// subscription returns to whatever status it held when Cancel was called:
// cancelling during the first month and keeping restores first_month.
func (s *Subscription) Keep(now time.Time) error {
	if s.Status != StatusEnding {
		return invalidTransition(s.Status, StatusActive)
	}
	if !now.Before(s.PeriodEnd) {
		return shared.NewDomainError(shared.ErrCodeInvalidStateTransition, "Billing period already elapsed; the subscription cannot be kept")
	}

	restored := s.PreCancelStatus
	if !restored.IsValid() || restored == StatusUnsubscribed {
		restored = StatusActive
	}

	s.Status = restored
	s.PreCancelStatus = ""
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, StatusEnding, restored))
	return nil
}

// Lapse finalizes a cancellation once the billing period has elapsed. The
// subscription returns to unsubscribed with its limits and billing period
// cleared; resubscribing later starts a fresh first month.
func (s *Subscription) Lapse(now time.Time) error {
	if s.Status != StatusEnding {
		return invalidTransition(s.Status, StatusUnsubscribed)
	}
	if now.Before(s.PeriodEnd) {
		return shared.NewDomainError(shared.ErrCodeInvalidStateTransition, "Billing period has not elapsed yet")
	}

	s.Status = StatusUnsubscribed
	s.PreCancelStatus = ""
	s.PeriodStart = time.Time{}
	s.PeriodEnd = time.Time{}
	s.RenewalDate = time.Time{}
	s.CurrentLimits = SelectedLimits{}
	s.NextLimits = SelectedLimits{}
	s.GatewaySubscriptionID = ""
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionStatusChangedEvent(s, StatusEnding, StatusUnsubscribed))
	return nil
}

// SelectNextLimits updates the next-cycle purchased limits. Gated on
// CanEditEntitlements; policy validation against the live connection set is
// the application layer's job.
func (s *Subscription) SelectNextLimits(transaction, investment int) error {
	if err := s.RequireEntitlementEdits(); err != nil {
		return err
	}
	if transaction < 0 || investment < 0 {
		return shared.NewDomainError("INVALID_LIMIT", "Selected limits cannot be negative")
	}

	s.NextLimits = SelectedLimits{Transaction: transaction, Investment: investment}
	s.markChanged()

	s.AddDomainEvent(NewSubscriptionLimitsChangedEvent(s))
	return nil
}

// CanEditEntitlements returns true when limit edits and explicit token
// balance edits are permitted
func (s *Subscription) CanEditEntitlements() bool {
	return s.Status == StatusFirstMonth || s.Status == StatusActive
}

// RequireEntitlementEdits returns a typed rejection when the current status
// locks entitlement changes
func (s *Subscription) RequireEntitlementEdits() error {
	if s.CanEditEntitlements() {
		return nil
	}
	return shared.NewDomainErrorWithDetails(
		"SUBSCRIPTION_LOCKED",
		fmt.Sprintf("Entitlement changes are not allowed while the subscription is %s", s.Status),
		map[string]any{"status": string(s.Status)},
	)
}

// IsSubscribed returns true once a subscription has been started and not
// fully ended
func (s *Subscription) IsSubscribed() bool {
	return s.Status != StatusUnsubscribed
}

// PeriodElapsed returns true when the current billing period is over
func (s *Subscription) PeriodElapsed(now time.Time) bool {
	return !s.PeriodEnd.IsZero() && !now.Before(s.PeriodEnd)
}

func (s *Subscription) markChanged() {
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
}

package billing

import (
	"time"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

const (
	// AggregateTypeSubscription identifies the subscription aggregate in events
	AggregateTypeSubscription = "Subscription"
)

// SubscriptionStatusChangedEvent fires on every status transition
type SubscriptionStatusChangedEvent struct {
	shared.BaseDomainEvent
	OldStatus SubscriptionStatus `json:"old_status"`
	NewStatus SubscriptionStatus `json:"new_status"`
}

// NewSubscriptionStatusChangedEvent creates a status change event
func NewSubscriptionStatusChangedEvent(s *Subscription, oldStatus, newStatus SubscriptionStatus) *SubscriptionStatusChangedEvent {
	return &SubscriptionStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("subscription.status_changed", AggregateTypeSubscription, s.ID, s.AccountID),
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// SubscriptionRenewedEvent fires when a renewal payment succeeds and the
// billing period rolls forward
type SubscriptionRenewedEvent struct {
	shared.BaseDomainEvent
	RenewedAt   time.Time      `json:"renewed_at"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Limits      SelectedLimits `json:"limits"`
}

// NewSubscriptionRenewedEvent creates a renewal event
func NewSubscriptionRenewedEvent(s *Subscription, renewedAt time.Time) *SubscriptionRenewedEvent {
	return &SubscriptionRenewedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("subscription.renewed", AggregateTypeSubscription, s.ID, s.AccountID),
		RenewedAt:       renewedAt,
		PeriodStart:     s.PeriodStart,
		PeriodEnd:       s.PeriodEnd,
		Limits:          s.CurrentLimits,
	}
}

// SubscriptionLimitsChangedEvent fires when the next-cycle limits change
type SubscriptionLimitsChangedEvent struct {
	shared.BaseDomainEvent
	NextLimits SelectedLimits `json:"next_limits"`
}

// NewSubscriptionLimitsChangedEvent creates a limits change event
func NewSubscriptionLimitsChangedEvent(s *Subscription) *SubscriptionLimitsChangedEvent {
	return &SubscriptionLimitsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("subscription.limits_changed", AggregateTypeSubscription, s.ID, s.AccountID),
		NextLimits:      s.NextLimits,
	}
}

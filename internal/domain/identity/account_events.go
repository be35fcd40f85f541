package identity

import (
	"github.com/ledgerlink/backend/internal/domain/shared"
)

const (
	// AggregateTypeAccount identifies the account aggregate in events
	AggregateTypeAccount = "Account"
)

// AccountRegisteredEvent fires when a new account is created
type AccountRegisteredEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
}

// NewAccountRegisteredEvent creates an account registered event
func NewAccountRegisteredEvent(a *Account) *AccountRegisteredEvent {
	return &AccountRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("account.registered", AggregateTypeAccount, a.ID, a.ID),
		Email:           a.Email,
	}
}

// EmailChangeRequestedEvent fires when a new address is staged for verification
type EmailChangeRequestedEvent struct {
	shared.BaseDomainEvent
	PendingEmail string `json:"pending_email"`
}

// NewEmailChangeRequestedEvent creates an email change requested event
func NewEmailChangeRequestedEvent(a *Account, pendingEmail string) *EmailChangeRequestedEvent {
	return &EmailChangeRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("account.email_change_requested", AggregateTypeAccount, a.ID, a.ID),
		PendingEmail:    pendingEmail,
	}
}

// EmailChangedEvent fires when a pending email change is verified and applied
type EmailChangedEvent struct {
	shared.BaseDomainEvent
	OldEmail string `json:"old_email"`
	NewEmail string `json:"new_email"`
}

// NewEmailChangedEvent creates an email changed event
func NewEmailChangedEvent(a *Account, oldEmail string) *EmailChangedEvent {
	return &EmailChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("account.email_changed", AggregateTypeAccount, a.ID, a.ID),
		OldEmail:        oldEmail,
		NewEmail:        a.Email,
	}
}

// AccountDeletionRequestedEvent fires when the user asks to delete the account
type AccountDeletionRequestedEvent struct {
	shared.BaseDomainEvent
}

// NewAccountDeletionRequestedEvent creates a deletion requested event
func NewAccountDeletionRequestedEvent(a *Account) *AccountDeletionRequestedEvent {
	return &AccountDeletionRequestedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("account.deletion_requested", AggregateTypeAccount, a.ID, a.ID),
	}
}

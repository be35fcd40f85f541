package identity

import (
	"crypto/subtle"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerlink/backend/internal/domain/shared"
)

// AccountStatus represents the lifecycle status of a user account
type AccountStatus string

const (
	AccountStatusActive            AccountStatus = "active"
	AccountStatusDeletionRequested AccountStatus = "deletion_requested"
	AccountStatusDeleted           AccountStatus = "deleted"
)

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Account represents a user of the aggregation product. It owns the login
// credentials and the pending email-change and deletion requests, both of
// which are confirmed out-of-band via emailed links.
type Account struct {
	shared.BaseAggregateRoot
	Email             string
	DisplayName       string
	PasswordHash      string
	Status            AccountStatus
	GatewayCustomerID string // payment processor customer handle, set on first subscribe
	LastLoginAt       *time.Time

	// Pending email change, applied only after the verification link is
	// followed. The token is single-use and expires.
	PendingEmail         string
	EmailChangeToken     string
	EmailChangeExpiresAt *time.Time

	DeletionRequestedAt *time.Time
}

// NewAccount creates an active account with a hashed password
func NewAccount(email, displayName, password string) (*Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	acc := &Account{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             email,
		DisplayName:       strings.TrimSpace(displayName),
		PasswordHash:      string(hash),
		Status:            AccountStatusActive,
	}

	acc.AddDomainEvent(NewAccountRegisteredEvent(acc))
	return acc, nil
}

// Authenticate verifies the password against the stored hash
func (a *Account) Authenticate(password string) error {
	if a.Status == AccountStatusDeleted {
		return shared.ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return shared.ErrUnauthorized
	}
	return nil
}

// RecordLogin stamps a successful authentication
func (a *Account) RecordLogin(now time.Time) {
	a.LastLoginAt = &now
	a.touch()
}

// ChangePassword replaces the password after verifying the current one
func (a *Account) ChangePassword(current, next string) error {
	if err := a.Authenticate(current); err != nil {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if len(next) < 8 {
		return shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcryptCost)
	if err != nil {
		return err
	}

	a.PasswordHash = string(hash)
	a.touch()
	return nil
}

// RequestEmailChange stages a new address pending verification. The token is
// emailed to the new address; the change applies only via VerifyEmailChange.
func (a *Account) RequestEmailChange(newEmail, token string, expiresAt time.Time) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if !emailRegex.MatchString(newEmail) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email address")
	}
	if newEmail == a.Email {
		return shared.NewDomainError("INVALID_EMAIL", "New email matches the current address")
	}
	if token == "" {
		return shared.NewDomainError("INVALID_TOKEN", "Verification token cannot be empty")
	}

	a.PendingEmail = newEmail
	a.EmailChangeToken = token
	a.EmailChangeExpiresAt = &expiresAt
	a.touch()

	a.AddDomainEvent(NewEmailChangeRequestedEvent(a, newEmail))
	return nil
}

// VerifyEmailChange applies the pending email change when the presented token
// matches and has not expired
func (a *Account) VerifyEmailChange(token string, now time.Time) error {
	if a.PendingEmail == "" || a.EmailChangeToken == "" {
		return shared.NewDomainError("NO_PENDING_CHANGE", "No email change is pending")
	}
	if subtle.ConstantTimeCompare([]byte(a.EmailChangeToken), []byte(token)) != 1 {
		return shared.NewDomainError("INVALID_TOKEN", "Verification token does not match")
	}
	if a.EmailChangeExpiresAt != nil && now.After(*a.EmailChangeExpiresAt) {
		return shared.NewDomainError("TOKEN_EXPIRED", "Verification token has expired")
	}

	old := a.Email
	a.Email = a.PendingEmail
	a.clearPendingEmail()
	a.touch()

	a.AddDomainEvent(NewEmailChangedEvent(a, old))
	return nil
}

// RejectEmailChange cancels the pending change, used when the rejection link
// in the notification sent to the old address is followed
func (a *Account) RejectEmailChange(token string) error {
	if a.PendingEmail == "" || a.EmailChangeToken == "" {
		return shared.NewDomainError("NO_PENDING_CHANGE", "No email change is pending")
	}
	if subtle.ConstantTimeCompare([]byte(a.EmailChangeToken), []byte(token)) != 1 {
		return shared.NewDomainError("INVALID_TOKEN", "Verification token does not match")
	}

	a.clearPendingEmail()
	a.touch()
	return nil
}

// RequestDeletion marks the account for deletion. Actual data removal runs at
// the end of the billing period by the teardown job.
func (a *Account) RequestDeletion(now time.Time) error {
	if a.Status != AccountStatusActive {
		return shared.ErrInvalidState
	}

	a.Status = AccountStatusDeletionRequested
	a.DeletionRequestedAt = &now
	a.touch()

	a.AddDomainEvent(NewAccountDeletionRequestedEvent(a))
	return nil
}

// CancelDeletion restores an account whose deletion was requested but not yet
// executed
func (a *Account) CancelDeletion() error {
	if a.Status != AccountStatusDeletionRequested {
		return shared.ErrInvalidState
	}

	a.Status = AccountStatusActive
	a.DeletionRequestedAt = nil
	a.touch()
	return nil
}

// AttachGatewayCustomer records the payment processor customer handle
func (a *Account) AttachGatewayCustomer(customerID string) {
	a.GatewayCustomerID = customerID
	a.touch()
}

func (a *Account) clearPendingEmail() {
	a.PendingEmail = ""
	a.EmailChangeToken = ""
	a.EmailChangeExpiresAt = nil
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

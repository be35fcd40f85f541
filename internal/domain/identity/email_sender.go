package identity

import (
	"context"
	"errors"
)

var (
	ErrEmailSendFailed = errors.New("email: send failed")
)

// EmailSender delivers the out-of-band confirmation links for email changes
// and account deletion. Implementations live in the infrastructure layer.
type EmailSender interface {
	// SendEmailChangeVerification mails the verification link to the new
	// address and the rejection notice to the current one
	SendEmailChangeVerification(ctx context.Context, acc *Account, verifyURL, rejectURL string) error

	// SendDeletionConfirmation mails the deletion confirmation to the account
	SendDeletionConfirmation(ctx context.Context, acc *Account) error
}

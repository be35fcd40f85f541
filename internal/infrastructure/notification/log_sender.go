// Package notification delivers transactional account email through AWS SES.
package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/identity"
)

// Ensure LogEmailSender implements identity.EmailSender
var _ identity.EmailSender = (*LogEmailSender)(nil)

// LogEmailSender is a placeholder implementation of identity.EmailSender that
// writes the mail it would have sent to the log. Use it in development when
// no SES credentials are configured.
type LogEmailSender struct {
	logger *zap.Logger
}

// NewLogEmailSender creates a new LogEmailSender
func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailSender{logger: logger}
}

// SendEmailChangeVerification logs the verification and rejection links
// instead of sending them
func (s *LogEmailSender) SendEmailChangeVerification(ctx context.Context, acc *identity.Account, verifyURL, rejectURL string) error {
	s.logger.Info("email change verification (not sent, log sender)",
		zap.String("account_id", acc.ID.String()),
		zap.String("pending_email", acc.PendingEmail),
		zap.String("verify_url", verifyURL),
		zap.String("reject_url", rejectURL))
	return nil
}

// SendDeletionConfirmation logs the confirmation instead of sending it
func (s *LogEmailSender) SendDeletionConfirmation(ctx context.Context, acc *identity.Account) error {
	s.logger.Info("deletion confirmation (not sent, log sender)",
		zap.String("account_id", acc.ID.String()),
		zap.String("email", acc.Email))
	return nil
}

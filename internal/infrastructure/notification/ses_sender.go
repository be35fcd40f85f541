// Package notification delivers transactional account email through AWS SES.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/identity"
	infraconfig "github.com/ledgerlink/backend/internal/infrastructure/config"
)

// Ensure SESEmailSender implements identity.EmailSender
var _ identity.EmailSender = (*SESEmailSender)(nil)

// sesAPI is the subset of the SES v2 client the sender needs. Tests swap in
// a recording fake.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESEmailSender sends email-change verification and deletion confirmation
// mail via the AWS SES v2 API.
type SESEmailSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
	logger    *zap.Logger
}

// SESEmailSenderOption is a functional option for configuring SESEmailSender
type SESEmailSenderOption func(*SESEmailSender)

// WithLogger sets a custom logger for SESEmailSender
func WithLogger(logger *zap.Logger) SESEmailSenderOption {
	return func(s *SESEmailSender) {
		s.logger = logger
	}
}

// withClient replaces the SES client, for tests.
func withClient(client sesAPI) SESEmailSenderOption {
	return func(s *SESEmailSender) {
		s.client = client
	}
}

// NewSESEmailSender creates an SESEmailSender from configuration. Credentials
// come from the default AWS chain (environment, shared config, instance role).
func NewSESEmailSender(cfg *infraconfig.EmailConfig, opts ...SESEmailSenderOption) (*SESEmailSender, error) {
	if cfg == nil {
		return nil, errors.New("email configuration is required")
	}
	if cfg.FromEmail == "" {
		return nil, errors.New("email from address is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	sender := &SESEmailSender{
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(sender)
	}

	if sender.client == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(region),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create AWS config: %w", err)
		}
		sender.client = sesv2.NewFromConfig(awsCfg)
	}

	return sender, nil
}

// SendEmailChangeVerification mails the verification link to the pending
// address and a rejection notice to the current one. The rejection notice is
// best effort: a failure there is logged but does not fail the request,
// since the verification mail already went out.
func (s *SESEmailSender) SendEmailChangeVerification(ctx context.Context, acc *identity.Account, verifyURL, rejectURL string) error {
	if acc.PendingEmail == "" {
		return fmt.Errorf("%w: account has no pending email", identity.ErrEmailSendFailed)
	}

	verifyBody := fmt.Sprintf(
		"Hi %s,\n\n"+
			"A request was made to use this address for your LedgerLink account.\n"+
			"Confirm the change by opening the link below:\n\n"+
			"%s\n\n"+
			"If you did not ask for this, you can ignore this message.\n",
		displayName(acc), verifyURL)
	if err := s.send(ctx, acc.PendingEmail, "Confirm your new email address", verifyBody); err != nil {
		return err
	}

	rejectBody := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Someone asked to change the email address on your LedgerLink account to %s.\n"+
			"If that was you, confirm it from the mail sent to the new address.\n"+
			"If it was not, reject the change here:\n\n"+
			"%s\n",
		displayName(acc), acc.PendingEmail, rejectURL)
	if err := s.send(ctx, acc.Email, "Email change requested on your account", rejectBody); err != nil {
		s.logger.Warn("rejection notice delivery failed",
			zap.String("account_id", acc.ID.String()),
			zap.Error(err))
	}

	return nil
}

// SendDeletionConfirmation mails the deletion confirmation to the account's
// current address.
func (s *SESEmailSender) SendDeletionConfirmation(ctx context.Context, acc *identity.Account) error {
	body := fmt.Sprintf(
		"Hi %s,\n\n"+
			"Your LedgerLink account is scheduled for deletion. Bank connections\n"+
			"will be unlinked and your data removed.\n\n"+
			"If you change your mind, sign in before the deletion completes to\n"+
			"cancel the request.\n",
		displayName(acc))
	return s.send(ctx, acc.Email, "Your account deletion request", body)
}

func (s *SESEmailSender) send(ctx context.Context, to, subject, textBody string) error {
	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.fromAddress()),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(textBody)},
				},
			},
		},
	})
	if err != nil {
		s.logger.Error("SES send failed",
			zap.String("subject", subject),
			zap.Error(err))
		return fmt.Errorf("%w: %v", identity.ErrEmailSendFailed, err)
	}

	s.logger.Debug("email sent",
		zap.String("subject", subject))
	return nil
}

func (s *SESEmailSender) fromAddress() string {
	if s.fromName == "" {
		return s.fromEmail
	}
	return fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
}

func displayName(acc *identity.Account) string {
	if name := strings.TrimSpace(acc.DisplayName); name != "" {
		return name
	}
	return "there"
}

package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
)

// AccountServiceConfig contains configuration for AccountService
type AccountServiceConfig struct {
	// BaseURL prefixes the verification and rejection links in emails
	BaseURL string

	// EmailChangeTTL bounds how long a verification link stays valid
	EmailChangeTTL time.Duration
}

// DefaultAccountServiceConfig returns default configuration
func DefaultAccountServiceConfig() AccountServiceConfig {
	return AccountServiceConfig{
		BaseURL:        "https://app.ledgerlink.io",
		EmailChangeTTL: 24 * time.Hour,
	}
}

// AccountService handles registration, profile changes, and the emailed
// confirmation flows for email changes and account deletion
type AccountService struct {
	accountRepo identity.AccountRepository
	emailSender identity.EmailSender
	publisher   shared.EventPublisher
	logger      *zap.Logger

	baseURL        string
	emailChangeTTL time.Duration
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo identity.AccountRepository,
	emailSender identity.EmailSender,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	config AccountServiceConfig,
) *AccountService {
	return &AccountService{
		accountRepo:    accountRepo,
		emailSender:    emailSender,
		publisher:      publisher,
		logger:         logger,
		baseURL:        config.BaseURL,
		emailChangeTTL: config.EmailChangeTTL,
	}
}

// AccountDTO is the client-facing profile view
type AccountDTO struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Status       string    `json:"status"`
	PendingEmail string    `json:"pending_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAccountDTO(a *identity.Account) *AccountDTO {
	return &AccountDTO{
		ID:           a.ID,
		Email:        a.Email,
		DisplayName:  a.DisplayName,
		Status:       string(a.Status),
		PendingEmail: a.PendingEmail,
		CreatedAt:    a.CreatedAt,
	}
}

// RegisterInput contains input for creating an account
type RegisterInput struct {
	Email       string
	DisplayName string
	Password    string
}

// Register creates a new account
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*AccountDTO, error) {
	existing, err := s.accountRepo.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, shared.NewDomainError("EMAIL_TAKEN", "An account with this email already exists")
	}

	acc, err := identity.NewAccount(input.Email, input.DisplayName, input.Password)
	if err != nil {
		return nil, err
	}

	if err := s.accountRepo.Save(ctx, acc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, acc.GetDomainEvents())
	acc.ClearDomainEvents()

	s.logger.Info("Account registered", zap.String("account_id", acc.ID.String()))
	return toAccountDTO(acc), nil
}

// Authenticate verifies credentials and returns the account
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*identity.Account, error) {
	acc, err := s.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, err
	}
	if err := acc.Authenticate(password); err != nil {
		return nil, err
	}

	acc.RecordLogin(time.Now())
	if err := s.accountRepo.Update(ctx, acc); err != nil {
		s.logger.Warn("Failed to record login", zap.Error(err))
	}
	return acc, nil
}

// GetProfile returns the account profile
func (s *AccountService) GetProfile(ctx context.Context, accountID uuid.UUID) (*AccountDTO, error) {
	acc, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return toAccountDTO(acc), nil
}

// ChangePassword replaces the account password
func (s *AccountService) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	acc, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := acc.ChangePassword(current, next); err != nil {
		return err
	}
	return s.accountRepo.Update(ctx, acc)
}

// RequestEmailChange stages a new address and mails the verification link to
// it, with a rejection link notified to the current address
func (s *AccountService) RequestEmailChange(ctx context.Context, accountID uuid.UUID, newEmail string) error {
	acc, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	token, err := randomToken()
	if err != nil {
		return err
	}

	if err := acc.RequestEmailChange(newEmail, token, time.Now().Add(s.emailChangeTTL)); err != nil {
		return err
	}

	verifyURL := s.baseURL + "/account/email/verify?token=" + token
	rejectURL := s.baseURL + "/account/email/reject?token=" + token
	if err := s.emailSender.SendEmailChangeVerification(ctx, acc, verifyURL, rejectURL); err != nil {
		s.logger.Error("Failed to send verification email", zap.Error(err))
		return shared.NewDomainError("EMAIL_SEND_FAILED", "Sending the verification email failed")
	}

	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return err
	}

	s.publishEvents(ctx, acc.GetDomainEvents())
	acc.ClearDomainEvents()
	return nil
}

// VerifyEmailChange applies a staged email change from its emailed token
func (s *AccountService) VerifyEmailChange(ctx context.Context, token string) (*AccountDTO, error) {
	acc, err := s.findByChangeToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := acc.VerifyEmailChange(token, time.Now()); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, acc.GetDomainEvents())
	acc.ClearDomainEvents()

	s.logger.Info("Email change verified", zap.String("account_id", acc.ID.String()))
	return toAccountDTO(acc), nil
}

// RejectEmailChange cancels a staged email change from its emailed token
func (s *AccountService) RejectEmailChange(ctx context.Context, token string) error {
	acc, err := s.findByChangeToken(ctx, token)
	if err != nil {
		return err
	}

	if err := acc.RejectEmailChange(token); err != nil {
		return err
	}
	return s.accountRepo.Update(ctx, acc)
}

// RequestDeletion marks the account for deletion at period end and mails a
// confirmation
func (s *AccountService) RequestDeletion(ctx context.Context, accountID uuid.UUID) error {
	acc, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	if err := acc.RequestDeletion(time.Now()); err != nil {
		return err
	}
	if err := s.accountRepo.Update(ctx, acc); err != nil {
		return err
	}

	if err := s.emailSender.SendDeletionConfirmation(ctx, acc); err != nil {
		s.logger.Warn("Failed to send deletion confirmation", zap.Error(err))
	}

	s.publishEvents(ctx, acc.GetDomainEvents())
	acc.ClearDomainEvents()
	return nil
}

// CancelDeletion restores an account whose deletion has not yet run
func (s *AccountService) CancelDeletion(ctx context.Context, accountID uuid.UUID) error {
	acc, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := acc.CancelDeletion(); err != nil {
		return err
	}
	return s.accountRepo.Update(ctx, acc)
}

func (s *AccountService) findByChangeToken(ctx context.Context, token string) (*identity.Account, error) {
	if token == "" {
		return nil, shared.NewDomainError("INVALID_TOKEN", "Verification token cannot be empty")
	}
	acc, err := s.accountRepo.FindByEmailChangeToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_TOKEN", "Verification token does not match")
		}
		return nil, err
	}
	return acc, nil
}

func (s *AccountService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish domain events", zap.Error(err))
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

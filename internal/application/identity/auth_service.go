package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/auth"
)

// AuthService handles login sessions: credential checks, token issuance, and
// revocation via the blacklist
type AuthService struct {
	accountRepo identity.AccountRepository
	jwtService  *auth.JWTService
	blacklist   auth.TokenBlacklist
	logger      *zap.Logger
}

// NewAuthService creates a new authentication service. The blacklist is
// optional; without it logout only discards tokens client-side.
func NewAuthService(
	accountRepo identity.AccountRepository,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		jwtService:  jwtService,
		blacklist:   blacklist,
		logger:      logger,
	}
}

// LoginInput contains login credentials
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult contains the issued tokens and the account profile
type LoginResult struct {
	Tokens  *auth.TokenPair `json:"tokens"`
	Account *AccountDTO     `json:"account"`
}

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// Login authenticates an account and issues a token pair. Unknown emails and
// wrong passwords return the same error so the endpoint does not leak which
// addresses are registered.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	acc, err := s.accountRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := acc.Authenticate(input.Password); err != nil {
		s.logger.Warn("Failed login attempt", zap.String("account_id", acc.ID.String()))
		return nil, errInvalidCredentials
	}

	tokens, err := s.jwtService.GenerateTokenPair(acc.ID, acc.Email)
	if err != nil {
		return nil, err
	}

	acc.RecordLogin(time.Now())
	if err := s.accountRepo.Update(ctx, acc); err != nil {
		// Login still succeeds; the timestamp is best-effort
		s.logger.Warn("Failed to record login time",
			zap.String("account_id", acc.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Account logged in", zap.String("account_id", acc.ID.String()))
	return &LoginResult{Tokens: tokens, Account: toAccountDTO(acc)}, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Refresh token is invalid or expired")
	}

	if s.blacklist != nil {
		issuedAt := time.Time{}
		if claims.IssuedAt != nil {
			issuedAt = claims.IssuedAt.Time
		}
		invalidated, err := s.blacklist.IsAccountTokenInvalidated(ctx, claims.AccountID, issuedAt)
		if err != nil {
			s.logger.Error("Failed to check token invalidation", zap.Error(err))
		} else if invalidated {
			return nil, shared.NewDomainError("TOKEN_INVALID", "Session has been revoked")
		}
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Refresh token is invalid or expired")
	}

	// Deleted accounts cannot mint new sessions
	acc, err := s.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "Account no longer exists")
		}
		return nil, err
	}
	if acc.Status == identity.AccountStatusDeleted {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Account no longer exists")
	}

	return s.jwtService.GenerateTokenPair(acc.ID, acc.Email)
}

// Logout revokes the presented access token for the remainder of its lifetime
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ID == "" {
		return nil
	}

	ttl := time.Duration(0)
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}

	if err := s.blacklist.AddToBlacklist(ctx, claims.ID, ttl); err != nil {
		return err
	}

	s.logger.Info("Account logged out", zap.String("account_id", claims.AccountID))
	return nil
}

// RevokeAllSessions invalidates every outstanding token of an account, used
// when a password changes or a deletion is requested. The revocation entry
// lives as long as the longest-lived token could.
func (s *AuthService) RevokeAllSessions(ctx context.Context, accountID uuid.UUID) error {
	if s.blacklist == nil {
		return nil
	}
	return s.blacklist.AddAccountTokensToBlacklist(ctx, accountID.String(), s.jwtService.RefreshExpiration())
}

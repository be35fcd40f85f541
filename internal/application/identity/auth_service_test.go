package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ledgerlink/backend/internal/domain/identity"
	"github.com/ledgerlink/backend/internal/domain/shared"
	"github.com/ledgerlink/backend/internal/infrastructure/auth"
	"github.com/ledgerlink/backend/internal/infrastructure/config"
)

func newAuthFixture(t *testing.T) (*AuthService, *memAccountRepo, *identity.Account) {
	t.Helper()

	repo := newMemAccountRepo()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "ledgerlink-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc := NewAuthService(repo, jwtService, blacklist, zap.NewNop())

	acc, err := identity.NewAccount("casey@example.com", "Casey", "correct-horse-battery")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), acc))

	return svc, repo, acc
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues tokens for valid credentials", func(t *testing.T) {
		svc, _, acc := newAuthFixture(t)

		result, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "correct-horse-battery"})
		require.NoError(t, err)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
		assert.Equal(t, acc.ID, result.Account.ID)
		assert.NotNil(t, acc.LastLoginAt)
	})

	t.Run("rejects wrong password", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t)

		_, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "wrong"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	})

	t.Run("rejects unknown email with the same error", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t)

		_, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CREDENTIALS", domainErr.Code)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("exchanges a refresh token for a fresh pair", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t)

		result, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "correct-horse-battery"})
		require.NoError(t, err)

		pair, err := svc.Refresh(ctx, result.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, pair.AccessToken)
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t)

		_, err := svc.Refresh(ctx, "not-a-token")
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})

	t.Run("rejects an access token used as refresh token", func(t *testing.T) {
		svc, _, _ := newAuthFixture(t)

		result, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "correct-horse-battery"})
		require.NoError(t, err)

		_, err = svc.Refresh(ctx, result.Tokens.AccessToken)
		require.Error(t, err)
	})

	t.Run("rejects refresh after the account is deleted", func(t *testing.T) {
		svc, repo, acc := newAuthFixture(t)

		result, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "correct-horse-battery"})
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, acc.ID))

		_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthFixture(t)

	result, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "ledgerlink-test",
	})
	claims, err := jwtService.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, claims))

	blacklisted, err := svc.blacklist.IsBlacklisted(ctx, claims.ID)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestAuthService_RevokeAllSessions(t *testing.T) {
	ctx := context.Background()
	svc, _, acc := newAuthFixture(t)

	result, err := svc.Login(ctx, LoginInput{Email: "casey@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAllSessions(ctx, acc.ID))

	_, err = svc.Refresh(ctx, result.Tokens.RefreshToken)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOKEN_INVALID", domainErr.Code)
}

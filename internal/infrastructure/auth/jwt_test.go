package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlink/backend/internal/infrastructure/config"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-at-least-32-characters-long",
		RefreshSecret:          "test-refresh-secret-32-characters-long",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "ledgerlink-test",
	})
}

func TestJWTService_GenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()
	accountID := uuid.New()

	pair, err := svc.GenerateTokenPair(accountID, "pat@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
}

func TestJWTService_ValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	accountID := uuid.New()

	t.Run("accepts its own access token", func(t *testing.T) {
		pair, err := svc.GenerateTokenPair(accountID, "pat@example.com")
		require.NoError(t, err)

		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, accountID.String(), claims.AccountID)
		assert.Equal(t, "pat@example.com", claims.Email)
		assert.Equal(t, TokenTypeAccess, claims.TokenType)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("rejects a refresh token used as access", func(t *testing.T) {
		pair, err := svc.GenerateTokenPair(accountID, "pat@example.com")
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                 "a-completely-different-signing-secret!!",
			AccessTokenExpiration:  15 * time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "ledgerlink-test",
		})
		pair, err := other.GenerateTokenPair(accountID, "")
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:                 "test-secret-at-least-32-characters-long",
			AccessTokenExpiration:  -time.Minute,
			RefreshTokenExpiration: time.Hour,
			Issuer:                 "ledgerlink-test",
		})
		pair, err := expired.GenerateTokenPair(accountID, "")
		require.NoError(t, err)

		_, err = svc.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	accountID := uuid.New()

	t.Run("issues a fresh pair from a refresh token", func(t *testing.T) {
		pair, err := svc.GenerateTokenPair(accountID, "pat@example.com")
		require.NoError(t, err)

		fresh, err := svc.RefreshTokenPair(pair.RefreshToken)
		require.NoError(t, err)

		claims, err := svc.ValidateAccessToken(fresh.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, accountID.String(), claims.AccountID)
	})

	t.Run("rejects an access token used as refresh", func(t *testing.T) {
		pair, err := svc.GenerateTokenPair(accountID, "pat@example.com")
		require.NoError(t, err)

		_, err = svc.RefreshTokenPair(pair.AccessToken)
		assert.Error(t, err)
	})
}

func TestInMemoryTokenBlacklist(t *testing.T) {
	ctx := context.Background()

	t.Run("blacklists a jti until its ttl", func(t *testing.T) {
		bl := NewInMemoryTokenBlacklist()

		require.NoError(t, bl.AddToBlacklist(ctx, "jti-1", time.Minute))

		blacklisted, err := bl.IsBlacklisted(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, blacklisted)

		blacklisted, err = bl.IsBlacklisted(ctx, "jti-other")
		require.NoError(t, err)
		assert.False(t, blacklisted)
	})

	t.Run("expired entries fall out", func(t *testing.T) {
		bl := NewInMemoryTokenBlacklist()

		require.NoError(t, bl.AddToBlacklist(ctx, "jti-2", -time.Second))

		blacklisted, err := bl.IsBlacklisted(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, blacklisted)
	})

	t.Run("invalidates all account tokens issued before the cutoff", func(t *testing.T) {
		bl := NewInMemoryTokenBlacklist()
		accountID := uuid.New().String()

		issuedBefore := time.Now().Add(-time.Second)
		require.NoError(t, bl.AddAccountTokensToBlacklist(ctx, accountID, time.Hour))

		invalidated, err := bl.IsAccountTokenInvalidated(ctx, accountID, issuedBefore)
		require.NoError(t, err)
		assert.True(t, invalidated)

		invalidated, err = bl.IsAccountTokenInvalidated(ctx, accountID, time.Now().Add(time.Second))
		require.NoError(t, err)
		assert.False(t, invalidated)
	})
}

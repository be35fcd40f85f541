package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("creates logger with valid config", func(t *testing.T) {
		logger, err := New(&Config{Level: "debug", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New(&Config{Level: "verbose", Format: "json", Output: "stdout"})
		assert.Error(t, err)
	})

	t.Run("console format", func(t *testing.T) {
		logger, err := New(&Config{Level: "info", Format: "console", Output: "stderr"})
		require.NoError(t, err)
		assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestContext(t *testing.T) {
	base, err := New(DefaultConfig())
	require.NoError(t, err)

	t.Run("round trips logger through context", func(t *testing.T) {
		ctx := WithContext(context.Background(), base)
		assert.Equal(t, base, FromContext(ctx))
	})

	t.Run("missing logger returns nop", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("request id", func(t *testing.T) {
		ctx, enriched := WithRequestID(context.Background(), base, "req-123")
		assert.NotNil(t, enriched)
		assert.Equal(t, "req-123", GetRequestID(ctx))
	})

	t.Run("account id", func(t *testing.T) {
		ctx, _ := WithAccountID(context.Background(), base, "acc-42")
		assert.Equal(t, "acc-42", GetAccountID(ctx))
	})
}

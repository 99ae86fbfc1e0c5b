package log

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtx(t *testing.T) {
	t.Run("returns the stored logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		ctx := WithLogger(context.Background(), logger)

		Ctx(ctx).Info().Str("k", "v").Msg("hello")

		out := buf.String()
		assert.Contains(t, out, `"message":"hello"`)
		assert.Contains(t, out, `"k":"v"`)
	})

	t.Run("falls back to the global logger", func(t *testing.T) {
		assert.Equal(t, L(), Ctx(context.Background()))
	})
}

func TestLChaining(t *testing.T) {
	// Chained level calls straight off the helper must not panic.
	require.NotPanics(t, func() {
		L().Debug().Str("k", "v").Msg("chained")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" Warning "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
}

package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	ctx := context.Background()

	quiet := New(false)
	assert.False(t, quiet.Enabled(ctx, slog.LevelDebug))
	assert.True(t, quiet.Enabled(ctx, slog.LevelInfo))

	verbose := New(true)
	assert.True(t, verbose.Enabled(ctx, slog.LevelDebug))

	// The handler must accept records without panicking.
	verbose.Debug("startup", "component", "test", "empty", "")
}

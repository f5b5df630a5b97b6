package main

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/cyp0633/calshare/internal/config"
	"github.com/cyp0633/calshare/internal/seed"
	authmem "github.com/cyp0633/calshare/server/auth/memory"
	"github.com/cyp0633/calshare/server/notify"
	"github.com/cyp0633/calshare/server/recurrence"
	"github.com/cyp0633/calshare/server/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestDemoFixture(t *testing.T) {
	f, err := seed.Parse(demoFixture)
	require.NoError(t, err)

	ctx := context.Background()
	users := authmem.New(authmem.WithCost(bcrypt.MinCost))
	store := memory.New()
	require.NoError(t, f.Apply(ctx, users, store, recurrence.NewEngine(), slog.New(slog.NewTextHandler(io.Discard, nil))))

	cals, err := store.ListCalendarsForUser(ctx, "bob")
	require.NoError(t, err)
	assert.Len(t, cals, 2)

	evs, err := store.ListEvents(ctx, "alice-work")
	require.NoError(t, err)
	assert.Len(t, evs, 5)
}

func TestNewLogger(t *testing.T) {
	logger := newLogger(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger = newLogger(config.LoggingConfig{Level: "debug", Format: "text"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestNewNotifierDisabled(t *testing.T) {
	n, closeFn, err := newNotifier(&config.Config{}, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, notify.Nop{}, n)
	closeFn()
}

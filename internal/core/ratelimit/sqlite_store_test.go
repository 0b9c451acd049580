package ratelimit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"recipe-parser/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "limits.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(ctx))

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, "user-1", true, base.Add(-2*time.Hour)))
	require.NoError(t, store.Append(ctx, "user-1", false, base.Add(-30*time.Minute)))
	require.NoError(t, store.Append(ctx, "user-1", true, base))
	require.NoError(t, store.Append(ctx, "user-2", true, base))

	n, err := store.CountSince(ctx, "user-1", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.CountSince(ctx, "user-1", base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// 邊界時間點也計入
	n, err = store.CountSince(ctx, "user-1", base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreBacksLimiter(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(ctx, config.RateLimitConfig{
		Backend:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "limits.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	limiter := NewLimiter(store, Limits{Hourly: 2, Daily: 10, ChargeFailures: true})
	limiter.RecordAttempt(ctx, "user-1", true)
	assert.Empty(t, limiter.CheckLimit(ctx, "user-1"))
	limiter.RecordAttempt(ctx, "user-1", false)
	assert.Contains(t, limiter.CheckLimit(ctx, "user-1"), "Hourly limit reached")
}

func TestNewStoreRejectsUnknownBackend(t *testing.T) {
	_, err := NewStore(context.Background(), config.RateLimitConfig{Backend: "etcd"})
	assert.Error(t, err)
}

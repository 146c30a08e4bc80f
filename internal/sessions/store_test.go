// internal/sessions/store_test.go
package sessions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Memory Store Tests
// ==========================

func TestMemoryStore_RecordAndSeen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seen, err := store.Seen(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Record(ctx, "session-1"))

	seen, err = store.Seen(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = store.Seen(ctx, "session-2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStore_EmptySessionIDIgnored(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, ""))
	seen, err := store.Seen(ctx, "")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, "session-1"))
	require.NoError(t, store.Clear(ctx))

	seen, err := store.Seen(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

// ==========================
// Redis Store Tests
// ==========================

func TestRedisStore_RecordAndSeen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "audit:sessions:", 0)
	ctx := context.Background()

	seen, err := store.Seen(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Record(ctx, "session-1"))

	seen, err = store.Seen(ctx, "session-1")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.True(t, mr.Exists("audit:sessions:session-1"))
}

func TestRedisStore_TTLApplied(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "audit:sessions:", time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "session-ttl"))

	mr.FastForward(2 * time.Hour)

	seen, err := store.Seen(ctx, "session-ttl")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStore_Clear(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(client, "audit:sessions:", 0)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "session-1"))
	require.NoError(t, store.Record(ctx, "session-2"))
	require.NoError(t, store.Clear(ctx))

	seen, err := store.Seen(ctx, "session-1")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestRedisStore_ErrorWrapping(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "audit:sessions:", 0)
	ctx := context.Background()

	mock.ExpectExists("audit:sessions:session-x").SetErr(errors.New("connection refused"))

	_, err := store.Seen(ctx, "session-x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_STORE_FAILED")
}

// ==========================
// Checker Tests
// ==========================

func TestChecker_DegradedStoreReportsNotSeen(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, "audit:sessions:", 0)

	mock.ExpectExists("audit:sessions:session-x").SetErr(errors.New("connection refused"))

	checker := NewChecker(context.Background(), store)
	assert.False(t, checker.Seen("session-x"))
}

func TestChecker_ReflectsStoreContents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Record(ctx, "session-1"))

	checker := NewChecker(ctx, store)
	assert.True(t, checker.Seen("session-1"))
	assert.False(t, checker.Seen("session-2"))
}

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/flatval/pkg/adapters/redis"
	"github.com/aretw0/flatval/pkg/domain"
	"github.com/aretw0/flatval/pkg/heap"
	"github.com/aretw0/flatval/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunHistoryStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := redis.NewFromClient(client,
		redis.WithTTL(1*time.Second),
		redis.WithClock(func() time.Time { return clock }),
	)
	ctx := context.Background()
	sessionID := "session-ttl"

	e, err := domain.NewPending("e1", "1").Succeed(heap.Heap{0: heap.Number{Value: 1}})
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sessionID, e))

	sessions, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Expire both the list key (miniredis) and the index score (store clock).
	mr.FastForward(2 * time.Second)
	clock = clock.Add(2 * time.Second)

	_, err = store.List(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err = store.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	e, err := domain.NewPending("e1", "x").Fail("ReferenceError", "x is not defined")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sessionID, e))

	assert.True(t, mr.Exists("custom:app:my-session"), "Expected list with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_CorruptEntry(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "s"))
	_, err := mr.RPush("flatval:history:s", "{not json")
	require.NoError(t, err)

	_, err = store.List(ctx, "s")
	assert.ErrorContains(t, err, "failed to unmarshal entry 0")
}

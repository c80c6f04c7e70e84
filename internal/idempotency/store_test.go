package idempotency

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisStore(client, time.Minute), m
}

func TestRedisStore_ReserveCompleteLookup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "user", "k1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "user", "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, found, err := store.Lookup(ctx, "user", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Nil(t, rec, "first request still running")

	require.NoError(t, store.Complete(ctx, "user", "k1", Record{Status: 201, Body: []byte(`{"id":"x"}`)}))

	rec, found, err = store.Lookup(ctx, "user", "k1")
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, rec)
	assert.Equal(t, 201, rec.Status)
	assert.JSONEq(t, `{"id":"x"}`, string(rec.Body))
}

func TestRedisStore_KeysAreScopedPerUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.Reserve(ctx, "alice", "same")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(ctx, "bob", "same")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisStore_ReleaseAndExpiry(t *testing.T) {
	store, m := newTestStore(t)
	ctx := context.Background()

	_, err := store.Reserve(ctx, "user", "k")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "user", "k"))

	_, found, err := store.Lookup(ctx, "user", "k")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = store.Reserve(ctx, "user", "k")
	require.NoError(t, err)
	m.FastForward(2 * time.Minute)

	ok, err := store.Reserve(ctx, "user", "k")
	require.NoError(t, err)
	assert.True(t, ok, "expired key can be reserved again")
}

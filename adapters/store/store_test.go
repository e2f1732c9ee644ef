package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) (ports.Store, func(time.Duration))

func memoryFactory(t *testing.T) (ports.Store, func(time.Duration)) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}
	return NewMemoryStore(WithMemoryClock(clock)), advance
}

func redisFactory(t *testing.T) (ports.Store, func(time.Duration)) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test:"), mr.FastForward
}

func forEachStore(t *testing.T, fn func(t *testing.T, s ports.Store, advance func(time.Duration))) {
	for name, factory := range map[string]storeFactory{"memory": memoryFactory, "redis": redisFactory} {
		t.Run(name, func(t *testing.T) {
			s, advance := factory(t)
			fn(t, s, advance)
		})
	}
}

func TestStoreSetGetExpires(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ports.Store, advance func(time.Duration)) {
		ctx := context.Background()

		_, ok, err := s.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
		value, ok, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "v", value)

		advance(59 * time.Second)
		_, ok, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		advance(2 * time.Second)
		_, ok, err = s.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStoreSetNX(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ports.Store, advance func(time.Duration)) {
		ctx := context.Background()

		ok, err := s.SetNX(ctx, "lock", "true", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.SetNX(ctx, "lock", "true", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		advance(time.Minute + time.Second)
		ok, err = s.SetNX(ctx, "lock", "true", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestStoreIncrKeepsTTL(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ports.Store, advance func(time.Duration)) {
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "counter", "1", time.Hour))
		advance(30 * time.Minute)

		n, err := s.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		advance(31 * time.Minute)
		_, ok, err := s.Get(ctx, "counter")
		require.NoError(t, err)
		assert.False(t, ok, "increment must not extend the expiry")

		n, err = s.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}

func TestStoreExpireAndDel(t *testing.T) {
	forEachStore(t, func(t *testing.T, s ports.Store, advance func(time.Duration)) {
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, "a", "1", 0))
		require.NoError(t, s.Set(ctx, "b", "2", 0))
		require.NoError(t, s.Expire(ctx, "a", time.Second))
		advance(2 * time.Second)

		_, ok, err := s.Get(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Del(ctx, "b", "missing"))
		_, ok, err = s.Get(ctx, "b")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRedisStoreNamespacesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client, "")
	require.NoError(t, s.Set(context.Background(), "revoked:abc", "revoked", time.Minute))

	assert.True(t, mr.Exists(DefaultNamespace+"revoked:abc"))
	assert.False(t, mr.Exists("revoked:abc"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := NewRedisStore(client, "")
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.Equal(t, core.CodeUnavailable, core.CodeOf(err))
}

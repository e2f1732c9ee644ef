package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultNamespace prefixes every key written by the service
const DefaultNamespace = "gatekeeper:"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ ports.Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store. An empty namespace selects
// DefaultNamespace.
func NewRedisStore(client *redis.Client, namespace string) *RedisStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &RedisStore{
		client: client,
		prefix: namespace,
	}
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, unavailable("get", key, err)
	}
	return value, true, nil
}

// Set stores a key with a value and expiration time
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// SetNX stores the key only if it does not exist yet
func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return false, unavailable("setnx", key, err)
	}
	return ok, nil
}

// Incr increments the integer stored at key; INCR keeps the existing TTL
func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, unavailable("incr", key, err)
	}
	return n, nil
}

// Expire sets a new TTL on key
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, s.prefix+key, ttl).Err(); err != nil {
		return unavailable("expire", key, err)
	}
	return nil
}

// Del removes keys
func (s *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, key := range keys {
		prefixed[i] = s.prefix + key
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return unavailable("del", keys[0], err)
	}
	return nil
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return core.Wrap(core.CodeUnavailable, core.ErrStoreUnavailable.Message, err)
	}
	return nil
}

func unavailable(op, key string, err error) error {
	return core.Wrap(core.CodeUnavailable, core.ErrStoreUnavailable.Message, fmt.Errorf("redis %s %q: %w", op, key, err))
}

package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is an in-memory implementation of the Store interface, for
// tests and single-process development. Expired keys are dropped lazily.
type MemoryStore struct {
	data map[string]memoryEntry
	mu   sync.Mutex
	now  func() time.Time
}

var _ ports.Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithMemoryClock replaces time.Now so tests can move time forward.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]memoryEntry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set stores a key with a value and expiration time
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = memoryEntry{value: value, expiresAt: s.deadline(ttl)}
	return nil
}

// SetNX stores the key only if it does not exist yet
func (s *MemoryStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.data[key] = memoryEntry{value: value, expiresAt: s.deadline(ttl)}
	return true, nil
}

// Incr increments the integer stored at key, keeping its expiry
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	var n int64
	if ok {
		var err error
		n, err = strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, core.Wrap(core.CodeInternal, "value is not an integer", fmt.Errorf("incr %q: %w", key, err))
		}
	}
	n++
	entry.value = strconv.FormatInt(n, 10)
	s.data[key] = entry
	return n, nil
}

// Expire sets a new TTL on key
func (s *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok {
		return nil
	}
	entry.expiresAt = s.deadline(ttl)
	s.data[key] = entry
	return nil
}

// Del removes keys
func (s *MemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

// TTL returns the remaining lifetime of key, or false when it is absent or
// has no expiry.
func (s *MemoryStore) TTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.lookup(key)
	if !ok || entry.expiresAt.IsZero() {
		return 0, false
	}
	return entry.expiresAt.Sub(s.now()), true
}

// Clear removes all data from the store
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]memoryEntry)
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	entry, ok := s.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(s.now()) {
		delete(s.data, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (s *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

package service

import (
	"context"
	"strconv"
	"time"

	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

// DefaultCounterWindow is how long a subject's attempt counter lives,
// counted from the first attempt.
const DefaultCounterWindow = 30 * 24 * time.Hour

func counterKey(subject string) string {
	return "counter:" + subject
}

func pendingKey(subject string) string {
	return "pending:" + subject
}

// RateLimiter throttles actions that send email: a counter caps attempts per
// window and a short lock blocks a new attempt while one is still pending.
type RateLimiter struct {
	store  ports.Store
	window time.Duration
}

// NewRateLimiter creates a limiter; a zero window selects DefaultCounterWindow.
func NewRateLimiter(store ports.Store, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = DefaultCounterWindow
	}
	return &RateLimiter{store: store, window: window}
}

// TryAcquire records one attempt for subject. It fails with
// core.ErrLimitExceeded once the counter is above limit, so limit+1 attempts
// fit in a window, and with core.ErrAlreadyPending while the lock is held.
//
// The lock is taken with SetNX before the counter changes, so concurrent
// callers for one subject get exactly one success.
func (l *RateLimiter) TryAcquire(ctx context.Context, subject string, limit int, lockTTL time.Duration) error {
	count, err := l.Count(ctx, subject)
	if err != nil {
		return err
	}
	if count > int64(limit) {
		return core.ErrLimitExceeded
	}

	acquired, err := l.store.SetNX(ctx, pendingKey(subject), "true", lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		return core.ErrAlreadyPending
	}

	if err := l.bump(ctx, subject); err != nil {
		_ = l.Release(context.WithoutCancel(ctx), subject)
		return err
	}
	return nil
}

// bump creates the counter at 1 or increments it without touching its TTL.
func (l *RateLimiter) bump(ctx context.Context, subject string) error {
	created, err := l.store.SetNX(ctx, counterKey(subject), "1", l.window)
	if err != nil || created {
		return err
	}

	n, err := l.store.Incr(ctx, counterKey(subject))
	if err != nil {
		return err
	}
	if n == 1 {
		// the counter expired between SetNX and Incr
		return l.store.Expire(ctx, counterKey(subject), l.window)
	}
	return nil
}

// Count returns the attempts recorded in the current window.
func (l *RateLimiter) Count(ctx context.Context, subject string) (int64, error) {
	raw, ok, err := l.store.Get(ctx, counterKey(subject))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, core.Wrap(core.CodeInternal, "corrupt rate limit counter", err)
	}
	return n, nil
}

// Release drops the pending lock so a new attempt may start.
func (l *RateLimiter) Release(ctx context.Context, subject string) error {
	return l.store.Del(ctx, pendingKey(subject))
}

// Forget drops the attempt counter of subject.
func (l *RateLimiter) Forget(ctx context.Context, subject string) error {
	return l.store.Del(ctx, counterKey(subject))
}

// Package ratelimit counts requests per key over fixed windows.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const defaultWindow = time.Minute

// Decision is the outcome of a request against the limit of its key.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the time left before the window of a denied request resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int) Decision
}

func decide(count, limit int, resetAt time.Time) Decision {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= limit,
		Count:     count,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// InMemoryLimiter keeps the counters of a single process.
type InMemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	items   map[string]entry
	nowFunc func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

var _ Limiter = (*InMemoryLimiter)(nil)

func NewInMemory(window time.Duration) *InMemoryLimiter {
	if window <= 0 {
		window = defaultWindow
	}
	return &InMemoryLimiter{
		window:  window,
		items:   make(map[string]entry),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (l *InMemoryLimiter) Allow(_ context.Context, key string, limit int) Decision {
	if limit <= 0 {
		limit = 1
	}
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanup(now)

	curr, ok := l.items[key]
	if !ok || now.After(curr.resetAt) {
		curr = entry{resetAt: now.Add(l.window)}
	}
	curr.count++
	l.items[key] = curr
	return decide(curr.count, limit, curr.resetAt)
}

func (l *InMemoryLimiter) cleanup(now time.Time) {
	for k, v := range l.items {
		if now.After(v.resetAt) {
			delete(l.items, k)
		}
	}
}

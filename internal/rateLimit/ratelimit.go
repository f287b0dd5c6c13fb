package rateLimit

import (
	"context"
	"sync"
	"time"
)

// Counter counts hits on a key within a fixed window.
type Counter interface {
	Incr(ctx context.Context, key string, period time.Duration) (int64, error)
}

type RateLimiter struct {
	counter Counter
}

func NewRateLimiter(counter Counter) *RateLimiter {
	return &RateLimiter{counter: counter}
}

// Allow reports whether another hit on key fits within rate per period. A
// counter failure denies the hit.
func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	n, err := rl.counter.Incr(ctx, key, period)
	if err != nil {
		return false
	}
	return n <= int64(rate)
}

// MemoryCounter is a Counter for a single process.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
}

type window struct {
	count   int64
	resetAt time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]window), now: time.Now}
}

func (m *MemoryCounter) Incr(ctx context.Context, key string, period time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(period)}
	}
	w.count++
	m.windows[key] = w
	return w.count, nil
}

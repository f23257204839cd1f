package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter keeps per-key sliding windows in process memory. It serves a single replica
// and is the fallback while Redis is failing.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
	log     *slog.Logger
}

func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
		log:     log,
	}
}

// Check admits the hit when fewer than limit hits landed in the last window. Unlike the
// Redis limiter, rejected hits are not recorded.
func (m *MemoryLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := trim(m.windows[key], now.Add(-window))
	allowed := len(hits) < limit
	if allowed {
		hits = append(hits, now)
	}
	m.windows[key] = hits

	resetAt := now.Add(window)
	if len(hits) > 0 {
		resetAt = hits[0].Add(window)
	}

	if !allowed {
		m.log.Debug("memory limiter rejected", slog.String("key", key), slog.Int("limit", limit))
	}

	return &Result{
		Allowed:   allowed,
		Remaining: max(limit-len(hits), 0),
		ResetAt:   resetAt,
	}, nil
}

// Cleanup forgets keys idle for longer than maxAge and returns how many were dropped.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.windows {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

// trim drops hits older than since, reusing the backing array.
func trim(hits []time.Time, since time.Time) []time.Time {
	i := 0
	for i < len(hits) && hits[i].Before(since) {
		i++
	}
	return append(hits[:0], hits[i:]...)
}

// Package ratelimit throttles updates per user with in-memory or Redis sliding windows.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result captures the outcome of a rate-limit evaluation. A rejected check is not an error.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter describes a rate-limiting strategy interface.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// New picks the limiter for backend. The Redis backend degrades to a stricter
// in-memory limiter while Redis is failing.
func New(backend string, client *redis.Client, memory *MemoryLimiter, log *slog.Logger) Limiter {
	if backend == BackendRedis && client != nil {
		return NewAdaptiveLimiter(NewRedisLimiter(client, log), memory, log)
	}
	return memory
}

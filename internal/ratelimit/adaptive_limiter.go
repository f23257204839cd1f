package ratelimit

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
)

// AdaptiveLimiter uses the shared Redis window and, while Redis fails, a local window at half
// the limit. Replicas cannot see each other's hits then, so the local limit is stricter.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	degraded atomic.Bool
	log      *slog.Logger
}

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) Limiter {
	if log == nil {
		log = slog.Default()
	}
	return &AdaptiveLimiter{primary: primary, fallback: fallback, log: log}
}

func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		if a.degraded.CompareAndSwap(true, false) {
			metrics.SetRateLimitDegraded(false)
			a.log.Info("redis limiter recovered")
		}
		metrics.RecordRateLimitCheck("redis", result.Allowed)
		return result, nil
	}

	metrics.RecordRateLimitRedisError()
	if a.degraded.CompareAndSwap(false, true) {
		metrics.SetRateLimitDegraded(true)
		a.log.Warn("redis limiter failed, using in-memory fallback", slog.Any("error", err))
	}

	result, err = a.fallback.Check(ctx, key, max(limit/2, 1), window)
	if err != nil {
		return nil, err
	}
	metrics.RecordRateLimitCheck("fallback", result.Allowed)
	return result, nil
}

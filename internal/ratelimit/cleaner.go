package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	appredis "github.com/Proton-105/cuteforcute-bot/pkg/redis"
)

const redisKeyPattern = "ratelimit:*"

// Cleaner drops idle in-memory windows and Redis windows without an expiry.
type Cleaner struct {
	memory      *MemoryLimiter
	redisClient *redis.Client
	log         *slog.Logger
	interval    time.Duration
	maxAge      time.Duration
}

// NewCleaner constructs a Cleaner. Either backend may be nil.
func NewCleaner(memory *MemoryLimiter, client *redis.Client, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}

	return &Cleaner{
		memory:      memory,
		redisClient: client,
		log:         log.With(slog.String("component", "ratelimit_cleaner")),
		interval:    interval,
		maxAge:      maxAge,
	}
}

// Run sweeps every interval until ctx ends.
func (c *Cleaner) Run(ctx context.Context) {
	if c.interval <= 0 {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("rate limit cleaner stopped", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Sweep makes one pass over both backends.
func (c *Cleaner) Sweep(ctx context.Context) {
	if c.memory != nil {
		if removed := c.memory.Cleanup(c.maxAge); removed > 0 {
			c.log.Debug("memory buckets cleaned", slog.Int("buckets_removed", removed))
		}
	}

	if c.redisClient != nil {
		c.sweepRedis(ctx)
	}
}

func (c *Cleaner) sweepRedis(ctx context.Context) {
	// The limiters always set an expiry; a key without one would never go away.
	removed, err := appredis.Sweep(ctx, c.redisClient, redisKeyPattern, func(ttl time.Duration) bool {
		return ttl == appredis.NoExpiry
	})
	if err != nil {
		c.log.Error("rate limit sweep failed", slog.Int("removed", removed), slog.Any("error", err))
		return
	}
	if removed > 0 {
		c.log.Info("rate limit keys cleaned", slog.Int("keys_removed", removed))
	}
}

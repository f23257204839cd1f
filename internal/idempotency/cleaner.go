package idempotency

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	appredis "github.com/Proton-105/cuteforcute-bot/pkg/redis"
)

// Cleaner drops idempotency records that lost their expiry or carry one longer than maxAge.
type Cleaner struct {
	client   *redis.Client
	log      *slog.Logger
	interval time.Duration
	maxAge   time.Duration
}

func NewCleaner(client *redis.Client, log *slog.Logger, interval, maxAge time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{
		client:   client,
		log:      log.With(slog.String("component", "idempotency_cleaner")),
		interval: interval,
		maxAge:   maxAge,
	}
}

// Run cleans every interval until ctx ends.
func (c *Cleaner) Run(ctx context.Context) {
	if c.client == nil || c.interval <= 0 {
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup makes one pass and returns the number of removed records.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	removed, err := appredis.Sweep(ctx, c.client, KeyPrefix+"*", func(ttl time.Duration) bool {
		return ttl == appredis.NoExpiry || ttl > c.maxAge
	})
	if err != nil {
		c.log.Error("idempotency sweep failed", slog.Int("removed", removed), slog.Any("error", err))
	} else if removed > 0 {
		c.log.Info("stale idempotency records removed", slog.Int("count", removed))
	}
	return removed
}

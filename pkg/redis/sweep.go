package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TTL values go-redis reports for keys without an expiry and for keys that are gone.
const (
	NoExpiry   time.Duration = -1
	KeyMissing time.Duration = -2
)

const sweepPageSize = 100

// Sweep unlinks every key matching pattern whose TTL satisfies stale. TTLs are read in one
// pipeline per SCAN page. It returns how many keys were removed before any error.
func Sweep(ctx context.Context, rdb *goredis.Client, pattern string, stale func(ttl time.Duration) bool) (int, error) {
	removed := 0
	var cursor uint64
	for {
		keys, next, err := rdb.Scan(ctx, cursor, pattern, sweepPageSize).Result()
		if err != nil {
			return removed, fmt.Errorf("scan %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			n, err := sweepPage(ctx, rdb, keys, stale)
			removed += n
			if err != nil {
				return removed, err
			}
		}

		if cursor = next; cursor == 0 {
			return removed, nil
		}
	}
}

func sweepPage(ctx context.Context, rdb *goredis.Client, keys []string, stale func(time.Duration) bool) (int, error) {
	ttls := make([]*goredis.DurationCmd, len(keys))
	_, err := rdb.Pipelined(ctx, func(pipe goredis.Pipeliner) error {
		for i, key := range keys {
			ttls[i] = pipe.TTL(ctx, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read ttls: %w", err)
	}

	var doomed []string
	for i, cmd := range ttls {
		if ttl := cmd.Val(); ttl != KeyMissing && stale(ttl) {
			doomed = append(doomed, keys[i])
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	n, err := rdb.Unlink(ctx, doomed...).Result()
	if err != nil {
		return 0, fmt.Errorf("unlink: %w", err)
	}
	return int(n), nil
}

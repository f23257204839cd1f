package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// slidingWindow trims hits older than ARGV[2], records the hit at ARGV[1] and returns
// {count, oldest score}.
// Rejected hits are recorded too, so a client that keeps retrying stays throttled.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[2])
redis.call('ZADD', key, ARGV[1], ARGV[4])
redis.call('PEXPIRE', key, ARGV[3])
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {redis.call('ZCARD', key), oldest[2]}
`)

// RedisLimiter shares sliding windows between bot replicas through sorted sets.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLimiter{client: client, log: log, now: time.Now}
}

func (l *RedisLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	if l.client == nil {
		return nil, errors.New("ratelimit: redis client is not configured")
	}

	now := l.now()
	if limit <= 0 {
		return &Result{ResetAt: now.Add(window)}, nil
	}

	raw, err := slidingWindow.Run(ctx, l.client,
		[]string{redisKeyPrefix + key},
		strconv.FormatInt(now.UnixMilli(), 10),
		"("+strconv.FormatInt(now.Add(-window).UnixMilli(), 10),
		strconv.FormatInt((2 * window).Milliseconds(), 10),
		uuid.NewString(),
	).Slice()
	if err != nil {
		l.log.Error("rate limiter script failed", slog.String("key", key), slog.Any("error", err))
		return nil, fmt.Errorf("ratelimit: %w", err)
	}

	count, oldest, err := parseWindow(raw)
	if err != nil {
		return nil, err
	}

	return &Result{
		Allowed:   count <= int64(limit),
		Remaining: max(limit-int(count), 0),
		ResetAt:   time.UnixMilli(oldest).Add(window),
	}, nil
}

func parseWindow(raw []interface{}) (int64, int64, error) {
	if len(raw) != 2 {
		return 0, 0, fmt.Errorf("ratelimit: unexpected script reply %v", raw)
	}

	count, ok := raw[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("ratelimit: unexpected count %T", raw[0])
	}

	score, _ := raw[1].(string)
	oldest, err := strconv.ParseFloat(score, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("ratelimit: parse oldest score: %w", err)
	}
	return count, int64(oldest), nil
}

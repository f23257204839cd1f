// Package redis owns the bot's single go-redis connection pool. Components that need the full
// command set take Raw(); the action cache uses the narrow key-value methods on Client.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Config holds connection parameters. Zero values keep go-redis defaults.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	MaxRetries   int
}

// Client is an instrumented go-redis client.
type Client struct {
	rdb *goredis.Client
}

// New connects, installs the metrics hook and pings once.
func New(ctx context.Context, cfg Config) (*Client, error) {
	c := Wrap(goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		MaxRetries:   cfg.MaxRetries,
	}))
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}
	return c, nil
}

// Wrap instruments an existing go-redis client.
func Wrap(rdb *goredis.Client) *Client {
	rdb.AddHook(metricsHook{})
	return &Client{rdb: rdb}
}

// Raw returns the underlying client; commands issued on it are still measured.
func (c *Client) Raw() *goredis.Client {
	return c.rdb
}

// Get returns the value at key; a missing key yields an error satisfying IsNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys; an empty list is a no-op.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// ScanKeys walks the keyspace with SCAN and returns every key matching pattern.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// IsNil reports whether err is, or wraps, the go-redis missing-key sentinel.
func IsNil(err error) bool {
	return errors.Is(err, goredis.Nil)
}

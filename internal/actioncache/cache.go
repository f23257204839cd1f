// Package actioncache is a read-through Redis cache for the action catalogue.
package actioncache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	apperrors "github.com/Proton-105/cuteforcute-bot/internal/errors"
	"github.com/Proton-105/cuteforcute-bot/pkg/metrics"
	appredis "github.com/Proton-105/cuteforcute-bot/pkg/redis"
)

const (
	// AllActionsKey stores the active catalogue snapshot.
	AllActionsKey = "bot:actions:all"
	// ActionKeyPrefix prefixes single-action entries keyed by name.
	ActionKeyPrefix = "bot:action:name:"

	DefaultAllActionsTTL = 5 * time.Minute
	DefaultActionTTL     = 10 * time.Minute
)

// Store is the key-value backend; *redis.Client implements it.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// Options configures entry lifetimes.
type Options struct {
	AllActionsTTL time.Duration
	ActionTTL     time.Duration
}

// Cache never returns backend errors from reads; failures are logged and reported as misses.
type Cache struct {
	store   Store
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
	allTTL  time.Duration
	itemTTL time.Duration
}

// New constructs a Cache. A nil store yields a cache that always misses.
func New(store Store, log *slog.Logger, opts Options) *Cache {
	if log == nil {
		log = slog.Default()
	}
	if opts.AllActionsTTL <= 0 {
		opts.AllActionsTTL = DefaultAllActionsTTL
	}
	if opts.ActionTTL <= 0 {
		opts.ActionTTL = DefaultActionTTL
	}

	log = log.With(slog.String("component", "action_cache"))
	breaker := apperrors.NewCircuitBreakerWithConfig(apperrors.BreakerConfig{
		OnStateChange: func(from, to apperrors.BreakerState) {
			log.Warn("cache circuit breaker moved", slog.String("from", from.String()), slog.String("to", to.String()))
		},
	})

	return &Cache{
		store:   store,
		breaker: breaker,
		log:     log,
		allTTL:  opts.AllActionsTTL,
		itemTTL: opts.ActionTTL,
	}
}

// GetAllActions returns the cached active catalogue.
func (c *Cache) GetAllActions(ctx context.Context) ([]domain.Action, bool) {
	var actions []domain.Action
	hit := c.read(ctx, AllActionsKey, &actions)
	metrics.RecordCacheLookup("all", hit)
	return actions, hit
}

// GetAction returns the cached action stored under name.
func (c *Cache) GetAction(ctx context.Context, name string) (*domain.Action, bool) {
	var action domain.Action
	hit := c.read(ctx, ActionKeyPrefix+name, &action)
	metrics.RecordCacheLookup("name", hit)
	if !hit {
		return nil, false
	}
	return &action, true
}

// SetAllActions stores the active catalogue snapshot.
func (c *Cache) SetAllActions(ctx context.Context, actions []domain.Action) {
	if actions == nil {
		actions = []domain.Action{}
	}
	c.write(ctx, AllActionsKey, actions, c.allTTL)
}

// SetAction stores a single action under its name.
func (c *Cache) SetAction(ctx context.Context, action *domain.Action) {
	if action == nil {
		return
	}
	c.write(ctx, ActionKeyPrefix+action.Name, action, c.itemTTL)
}

// InvalidateAll drops the snapshot and every single-action entry.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}

	err := c.breaker.Call(func() error {
		keys, err := c.store.ScanKeys(ctx, ActionKeyPrefix+"*")
		if err != nil {
			return err
		}
		return c.store.Delete(ctx, append(keys, AllActionsKey)...)
	})
	if err != nil {
		c.log.Warn("cache invalidation failed", slog.Any("error", err))
		return
	}

	c.log.Debug("action cache invalidated")
}

// Ping reports whether the backend is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.store == nil {
		return errors.New("action cache is not configured")
	}
	return c.store.Ping(ctx)
}

func (c *Cache) read(ctx context.Context, key string, dst any) bool {
	if c == nil || c.store == nil {
		return false
	}

	var (
		raw  string
		miss bool
	)
	err := c.breaker.Call(func() error {
		value, err := c.store.Get(ctx, key)
		if appredis.IsNil(err) {
			miss = true
			return nil
		}
		raw = value
		return err
	})
	if err != nil {
		c.log.Warn("cache read failed", slog.String("key", key), slog.Any("error", err))
		return false
	}
	if miss {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		c.log.Warn("cache entry is corrupt", slog.String("key", key), slog.Any("error", err))
		return false
	}
	return true
}

func (c *Cache) write(ctx context.Context, key string, value any, ttl time.Duration) {
	if c == nil || c.store == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("cache encode failed", slog.String("key", key), slog.Any("error", err))
		return
	}

	if err := c.breaker.Call(func() error {
		return c.store.Set(ctx, key, data, ttl)
	}); err != nil {
		c.log.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Package usercache caches registered user profiles in Redis.
package usercache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
)

const (
	// DefaultTTL bounds how long a profile may be served without hitting the database.
	DefaultTTL = 15 * time.Minute
	// MissingTTL is how long an id is remembered as unregistered.
	MissingTTL = time.Minute

	keyPrefix    = "bot:user:"
	fieldMissing = "missing"
)

// ErrUnregistered is returned by Get for ids recently confirmed absent from the database.
var ErrUnregistered = errors.New("user is not registered")

// Cache keeps each profile as a Redis hash.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns a Cache on client. A nil Cache or client turns every call into a miss.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

func (c *Cache) disabled() bool {
	return c == nil || c.client == nil
}

// Get returns the cached profile, (nil, nil) on a miss, or ErrUnregistered.
func (c *Cache) Get(ctx context.Context, userID int64) (*domain.User, error) {
	if c.disabled() {
		return nil, nil
	}

	fields, err := c.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get cached user %d: %w", userID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	if fields[fieldMissing] != "" {
		return nil, ErrUnregistered
	}

	u := &domain.User{
		ID:           userID,
		Username:     fields["username"],
		FullName:     fields["full_name"],
		LanguageCode: fields["language_code"],
	}
	u.CreatedAt = unixField(fields["created_at"])
	u.UpdatedAt = unixField(fields["updated_at"])
	return u, nil
}

// Set stores u, replacing whatever was cached for its id.
func (c *Cache) Set(ctx context.Context, u *domain.User) error {
	if c.disabled() || u == nil {
		return nil
	}

	k := key(u.ID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"username", u.Username,
			"full_name", u.FullName,
			"language_code", u.LanguageCode,
			"created_at", u.CreatedAt.Unix(),
			"updated_at", u.UpdatedAt.Unix(),
		)
		pipe.Expire(ctx, k, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set cached user %d: %w", u.ID, err)
	}
	return nil
}

// MarkMissing remembers for MissingTTL that userID has no profile.
func (c *Cache) MarkMissing(ctx context.Context, userID int64) error {
	if c.disabled() {
		return nil
	}

	k := key(userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, fieldMissing, 1)
		pipe.Expire(ctx, k, MissingTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mark user %d missing: %w", userID, err)
	}
	return nil
}

// Invalidate drops the entry for userID, positive or negative.
func (c *Cache) Invalidate(ctx context.Context, userID int64) error {
	if c.disabled() {
		return nil
	}
	if err := c.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("delete cached user %d: %w", userID, err)
	}
	return nil
}

func unixField(v string) time.Time {
	sec, err := strconv.ParseInt(v, 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
)

// Record is the stored state of one guarded operation.
type Record struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response,omitempty"`
	StoredAt time.Time       `json:"stored_at"`
}

// Store keeps one record per key.
type Store interface {
	// Claim writes a processing record for key if there is none. Otherwise it returns the record
	// found, which is nil when it expired in between.
	Claim(ctx context.Context, key string, ttl time.Duration) (claimed bool, existing *Record, err error)
	// Complete replaces the record with the operation's response.
	Complete(ctx context.Context, key string, response json.RawMessage, ttl time.Duration) error
	// Release drops the record so the operation may run again.
	Release(ctx context.Context, key string) error
}

// RedisStore keeps each record as a JSON string under KeyPrefix.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
	log    *slog.Logger
}

func NewRedisStore(client *redis.Client, log *slog.Logger) *RedisStore {
	if log == nil {
		log = slog.Default()
	}
	return &RedisStore{client: client, now: time.Now, log: log.With(slog.String("component", "idempotency_store"))}
}

func (s *RedisStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, *Record, error) {
	data, err := s.encode(Record{Status: StatusProcessing})
	if err != nil {
		return false, nil, err
	}

	ok, err := s.client.SetNX(ctx, recordKey(key), data, ttl).Result()
	if err != nil {
		return false, nil, fmt.Errorf("idempotency claim: %w", err)
	}
	if ok {
		return true, nil, nil
	}

	existing, err := s.get(ctx, key)
	return false, existing, err
}

func (s *RedisStore) Complete(ctx context.Context, key string, response json.RawMessage, ttl time.Duration) error {
	data, err := s.encode(Record{Status: StatusCompleted, Response: response})
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, recordKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency complete: %w", err)
	}
	return nil
}

func (s *RedisStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, recordKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *RedisStore) encode(r Record) ([]byte, error) {
	r.StoredAt = s.now().UTC()
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode idempotency record: %w", err)
	}
	return data, nil
}

func (s *RedisStore) get(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency get: %w", err)
	}

	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		// Unreadable records would block the key until they expire.
		s.log.Warn("dropping unreadable idempotency record", slog.String("key", key), slog.Any("error", err))
		if err := s.client.Del(ctx, recordKey(key)).Err(); err != nil {
			return nil, fmt.Errorf("idempotency drop unreadable: %w", err)
		}
		return nil, nil
	}
	return &r, nil
}

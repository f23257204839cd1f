package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stateKeyPrefix  = "wizard:state:"
	defaultStateTTL = time.Hour
	scanBatch       = 100
)

// RedisStorage keeps one JSON document per admin. Every write refreshes the TTL, so a wizard
// left half way simply expires.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStorage returns a Storage on client; ttl <= 0 means one hour.
func NewRedisStorage(client *redis.Client, log *slog.Logger, ttl time.Duration) Storage {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RedisStorage{client: client, log: log, ttl: ttl, now: time.Now}
}

func stateKey(userID int64) string {
	return stateKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *RedisStorage) GetState(ctx context.Context, userID int64) (*UserState, error) {
	raw, err := s.client.Get(ctx, stateKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		s.log.Error("failed to read wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, fmt.Errorf("get wizard state %d: %w", userID, err)
	}

	st, err := decodeState(raw)
	if err != nil {
		s.log.Error("failed to decode wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, err
	}
	return st, nil
}

func (s *RedisStorage) SetState(ctx context.Context, userID int64, st *UserState) error {
	if st == nil {
		return s.ClearState(ctx, userID)
	}
	st.UpdatedAt = s.now().UTC()

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode wizard state %d: %w", userID, err)
	}

	if err := s.client.Set(ctx, stateKey(userID), raw, s.ttl).Err(); err != nil {
		s.log.Error("failed to write wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("set wizard state %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStorage) ClearState(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, stateKey(userID)).Err(); err != nil {
		s.log.Error("failed to clear wizard state", slog.Int64("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("clear wizard state %d: %w", userID, err)
	}
	return nil
}

// GetAllStates walks the keyspace in SCAN batches and loads each batch with one MGET.
// Keys that expire mid-walk and documents that fail to decode are skipped.
func (s *RedisStorage) GetAllStates(ctx context.Context) ([]*UserState, error) {
	var (
		states []*UserState
		cursor uint64
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, stateKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("scan wizard states: %w", err)
		}

		if len(keys) > 0 {
			values, err := s.client.MGet(ctx, keys...).Result()
			if err != nil {
				return nil, fmt.Errorf("load wizard states: %w", err)
			}
			for i, v := range values {
				raw, ok := v.(string)
				if !ok {
					continue
				}
				st, err := decodeState([]byte(raw))
				if err != nil {
					s.log.Warn("skipping unreadable wizard state", slog.String("key", keys[i]), slog.Any("error", err))
					continue
				}
				states = append(states, st)
			}
		}

		if cursor = next; cursor == 0 {
			return states, nil
		}
	}
}

func decodeState(raw []byte) (*UserState, error) {
	var st UserState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode wizard state: %w", err)
	}
	return &st, nil
}

package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	Text string `json:"text"`
}

func setupManager(t *testing.T) (Manager, *redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewManager(NewRedisStore(client, testLogger()), testLogger()), client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_ReplayReturnsStoredOutcome(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()
	key := DecisionKey(1, "hug", "msg-1", 2)

	calls := 0
	op := func(context.Context) (interface{}, error) {
		calls++
		return outcome{Text: "done"}, nil
	}

	first, err := manager.Execute(ctx, key, time.Hour, op)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := manager.Execute(ctx, key, time.Hour, op)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, calls)

	var got outcome
	require.NoError(t, second.Decode(&got))
	assert.Equal(t, "done", got.Text)
}

func TestManager_FailedOperationCanBeRetried(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()
	key := GenerateKey("iact", 1)

	_, err := manager.Execute(ctx, key, time.Hour, func(context.Context) (interface{}, error) {
		return nil, errors.New("db down")
	})
	require.Error(t, err)

	result, err := manager.Execute(ctx, key, time.Hour, func(context.Context) (interface{}, error) {
		return outcome{Text: "ok"}, nil
	})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
}

func TestManager_InProgress(t *testing.T) {
	manager, client, _ := setupManager(t)
	ctx := context.Background()
	key := "busy"

	require.NoError(t, client.Set(ctx, recordKey(key), `{"status":"processing"}`, time.Minute).Err())

	_, err := manager.Execute(ctx, key, time.Hour, func(context.Context) (interface{}, error) {
		t.Fatal("operation must not run while another holder is active")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrRequestInProgress)
}

func TestManager_RecordExpires(t *testing.T) {
	manager, _, mr := setupManager(t)
	ctx := context.Background()

	calls := 0
	op := func(context.Context) (interface{}, error) {
		calls++
		return outcome{}, nil
	}

	_, err := manager.Execute(ctx, "k", time.Minute, op)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = manager.Execute(ctx, "k", time.Minute, op)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, GenerateKey("iact", 1, "hug"), GenerateKey("iact", 1, "hug"))
	assert.NotEqual(t, GenerateKey("iact", 1, "hug"), GenerateKey("iact", 2, "hug"))
	assert.NotEqual(t, GenerateKey("iact", "ab", "c"), GenerateKey("iact", "a", "bc"))
	assert.True(t, strings.HasPrefix(GenerateKey("iact", 1), "iact:"))
}

func TestDecisionKey_IgnoresDecision(t *testing.T) {
	key := DecisionKey(1, "hug", "-100:55", 2)
	assert.Equal(t, key, DecisionKey(1, "hug", "-100:55", 2))
	assert.NotEqual(t, key, DecisionKey(1, "hug", "-100:56", 2))
	assert.NotEqual(t, key, DecisionKey(1, "kiss", "-100:55", 2))
}

func TestRedisStore_UnreadableRecordIsReclaimed(t *testing.T) {
	_, client, _ := setupManager(t)
	ctx := context.Background()
	store := NewRedisStore(client, testLogger())

	require.NoError(t, client.Set(ctx, recordKey("broken"), "{not json", time.Minute).Err())

	claimed, existing, err := store.Claim(ctx, "broken", time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Nil(t, existing)

	claimed, _, err = store.Claim(ctx, "broken", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestManager_ConcurrentCallsRunOnce(t *testing.T) {
	manager, _, _ := setupManager(t)
	ctx := context.Background()

	release := make(chan struct{})
	var calls atomic.Int32
	op := func(context.Context) (interface{}, error) {
		calls.Add(1)
		<-release
		return outcome{Text: "once"}, nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := manager.Execute(ctx, "race", time.Hour, op)
		done <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	_, err := manager.Execute(ctx, "race", time.Hour, op)
	assert.ErrorIs(t, err, ErrRequestInProgress)

	close(release)
	require.NoError(t, <-done)

	replay, err := manager.Execute(ctx, "race", time.Hour, op)
	require.NoError(t, err)
	assert.True(t, replay.FromCache)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCleaner_RemovesKeysWithoutExpiry(t *testing.T) {
	_, client, _ := setupManager(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "idempotency:orphan", "x", 0).Err())
	require.NoError(t, client.Set(ctx, "idempotency:fresh", "x", time.Hour).Err())
	require.NoError(t, client.Set(ctx, "idempotency:ancient", "x", 72*time.Hour).Err())

	removed := NewCleaner(client, testLogger(), time.Minute, 25*time.Hour).Cleanup(ctx)
	assert.Equal(t, 2, removed)

	exists, err := client.Exists(ctx, "idempotency:fresh").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}

func TestManager_UnreachableStore(t *testing.T) {
	manager, _, mr := setupManager(t)
	mr.Close()

	calls := 0
	_, err := manager.Execute(context.Background(), "down", time.Hour, func(context.Context) (interface{}, error) {
		calls++
		return outcome{}, nil
	})
	require.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Zero(t, calls)
}

// lossyStore claims every key but cannot keep results.
type lossyStore struct{ released int }

func (s *lossyStore) Claim(context.Context, string, time.Duration) (bool, *Record, error) {
	return true, nil, nil
}

func (s *lossyStore) Complete(context.Context, string, json.RawMessage, time.Duration) error {
	return errors.New("ERR injected")
}

func (s *lossyStore) Release(context.Context, string) error {
	s.released++
	return nil
}

func TestManager_LostCompletionKeepsResult(t *testing.T) {
	store := &lossyStore{}
	manager := NewManager(store, testLogger())

	res, err := manager.Execute(context.Background(), "k", time.Hour, func(context.Context) (interface{}, error) {
		return outcome{Text: "done"}, nil
	})
	require.NoError(t, err)

	var got outcome
	require.NoError(t, res.Decode(&got))
	assert.Equal(t, "done", got.Text)
	assert.Equal(t, 1, store.released)
}

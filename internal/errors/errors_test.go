package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_IsMatchesByCode(t *testing.T) {
	dup := NewDuplicateNameError("Hug", errors.New("pq: duplicate key"))
	wrapped := fmt.Errorf("create action: %w", dup)

	assert.ErrorIs(t, wrapped, ErrDuplicateName)
	assert.NotErrorIs(t, wrapped, ErrSelfInteraction)
	assert.ErrorIs(t, NewActionUnavailableError("Hug"), ErrActionUnavailable)
	assert.Contains(t, dup.Error(), `"Hug"`)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeRateLimit, CodeOf(fmt.Errorf("deliver: %w", NewRateLimitError(3))))
	assert.Equal(t, CodeValidation, CodeOf(NewValidationError("empty name")))
	assert.Empty(t, CodeOf(errors.New("plain")))
	assert.Empty(t, CodeOf(nil))
}

func TestNewRateLimitError_CarriesWait(t *testing.T) {
	err := NewRateLimitError(7)
	assert.Equal(t, 7*time.Second, err.RetryAfter)
	assert.False(t, err.Retryable)
	assert.True(t, IsExpected(err))
}

func TestIsExpected(t *testing.T) {
	assert.True(t, IsExpected(ErrUnknownSender))
	assert.True(t, IsExpected(fmt.Errorf("wrap: %w", ErrSelfInteraction)))
	assert.False(t, IsExpected(NewDatabaseError(errors.New("conn reset"))))
	assert.False(t, IsExpected(errors.New("plain")))
}

func TestHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), false)

	msg, retryable := h.Handle(context.Background(), NewDatabaseError(errors.New("timeout")))
	assert.Equal(t, "Временная проблема, попробуйте позже", msg)
	assert.True(t, retryable)
	assert.Contains(t, buf.String(), CodeDatabase)

	msg, retryable = h.Handle(context.Background(), errors.New("boom"))
	assert.Equal(t, "Произошла ошибка. Попробуйте позже", msg)
	assert.False(t, retryable)

	msg, _ = h.Handle(context.Background(), nil)
	assert.Empty(t, msg)
}

func TestWithRetry_RetriesOnlyRetryable(t *testing.T) {
	policy := RetryPolicy{Attempts: 3, Initial: time.Millisecond, Multiplier: 2}

	calls := 0
	err := Retry(context.Background(), policy, func() error {
		calls++
		if calls < 2 {
			return NewDatabaseError(errors.New("refused"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = Retry(context.Background(), policy, func() error {
		calls++
		return NewValidationError("bad")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	calls = 0
	err = Retry(context.Background(), policy, func() error {
		calls++
		return NewDatabaseError(errors.New("refused"))
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{Attempts: 10, Initial: time.Hour}

	calls := 0
	err := Retry(ctx, policy, func() error {
		calls++
		cancel()
		return NewDatabaseError(errors.New("refused"))
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestNextDelay_Capped(t *testing.T) {
	policy := RetryPolicy{Initial: time.Second, Max: 3 * time.Second, Multiplier: 2}

	assert.Equal(t, 2*time.Second, nextDelay(time.Second, policy))
	assert.Equal(t, 3*time.Second, nextDelay(2*time.Second, policy))
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreakerWithConfig(BreakerConfig{
		MinRequests: 4,
		OpenFor:     20 * time.Millisecond,
		Probes:      2,
		OnStateChange: func(from, to BreakerState) {
			transitions = append(transitions, from.String()+">"+to.String())
		},
	})
	failure := errors.New("redis down")

	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return failure })
	}
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.True(t, IsOpen(err))
	assert.False(t, called)

	time.Sleep(30 * time.Millisecond)
	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Call(func() error { return nil }))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed>open", "open>half_open", "half_open>closed"}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(BreakerConfig{MinRequests: 2, OpenFor: 10 * time.Millisecond})
	failure := errors.New("redis down")

	_ = cb.Call(func() error { return failure })
	_ = cb.Call(func() error { return failure })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)
	assert.ErrorIs(t, cb.Call(func() error { return failure }), failure)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_StaysClosedBelowMinRequests(t *testing.T) {
	cb := NewCircuitBreaker()
	for i := 0; i < 5; i++ {
		_ = cb.Call(func() error { return errors.New("boom") })
	}
	assert.Equal(t, StateClosed, cb.State())
}

package errors

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds how often and how long a retryable operation is repeated.
type RetryPolicy struct {
	Attempts   int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRetryPolicy is used for startup pings: four attempts over roughly a second.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:   4,
	Initial:    200 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// WithRetry runs fn under DefaultRetryPolicy.
func WithRetry(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultRetryPolicy, fn)
}

// Retry repeats fn while it fails with a retryable AppError. The wait between attempts grows by
// Multiplier up to Max and is interrupted by ctx.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}

	delay := policy.Initial
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil || !IsRetryable(err) || attempt >= policy.Attempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}

		delay = nextDelay(delay, policy)
	}
}

// IsRetryable reports whether err carries an AppError marked retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}

func nextDelay(current time.Duration, policy RetryPolicy) time.Duration {
	if policy.Multiplier > 1 {
		current = time.Duration(float64(current) * policy.Multiplier)
	}
	if policy.Max > 0 && current > policy.Max {
		return policy.Max
	}
	return current
}

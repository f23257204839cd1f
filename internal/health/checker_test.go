package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestChecker_AllHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewChecker(testLogger())
	checker.AddCheck("redis", NewRedisChecker(client))
	checker.AddCheck("database", CheckFunc(func(context.Context) error { return nil }))

	report := checker.Check(context.Background())

	assert.True(t, report.Ready())
	assert.Equal(t, StatusHealthy, report.Checks["redis"].Status)
	assert.Equal(t, "OK", report.Checks["redis"].Message)
	assert.Equal(t, []string{"database", "redis"}, checker.Names())
}

func TestChecker_OneFailureMakesNotReady(t *testing.T) {
	checker := NewChecker(testLogger())
	checker.AddCheck("database", CheckFunc(func(context.Context) error { return errors.New("connection refused") }))
	checker.AddCheck("redis", CheckFunc(func(context.Context) error { return nil }))

	report := checker.Check(context.Background())

	assert.False(t, report.Ready())
	assert.Equal(t, StatusNotReady, report.Status)
	assert.Equal(t, "connection refused", report.Checks["database"].Message)
	assert.Equal(t, StatusHealthy, report.Checks["redis"].Status)
}

func TestDBChecker_NilDatabase(t *testing.T) {
	assert.Error(t, NewDBChecker(nil).HealthCheck(context.Background()))
}

func TestChecker_TimeoutBoundsSlowCheck(t *testing.T) {
	checker := NewChecker(testLogger())
	checker.timeout = 20 * time.Millisecond
	checker.AddCheck("slow", CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	start := time.Now()
	report := checker.Check(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusUnhealthy, report.Checks["slow"].Status)
	assert.Contains(t, report.Checks["slow"].Message, "deadline exceeded")
	assert.GreaterOrEqual(t, report.Checks["slow"].LatencyMS, int64(20))
}

func TestChecker_IgnoresInvalidRegistrations(t *testing.T) {
	checker := NewChecker(testLogger())
	checker.AddCheck("", CheckFunc(func(context.Context) error { return nil }))
	checker.AddCheck("nil", nil)

	assert.Empty(t, checker.Names())
	assert.True(t, checker.Check(context.Background()).Ready())
}

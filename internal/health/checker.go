// Package health runs dependency checks for the readiness probe.
package health

import (
	"context"
	"database/sql"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"

	defaultCheckTimeout = 2 * time.Second
)

// Checkable is a dependency that can be probed.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a function to Checkable.
type CheckFunc func(ctx context.Context) error

func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Result is the outcome of one check.
type Result struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is ready only when every check passed.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

func (r Report) Ready() bool {
	return r.Status == StatusReady
}

// Checker runs named checks concurrently, each under its own timeout.
type Checker struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	checks map[string]Checkable
}

func NewChecker(log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{log: log, timeout: defaultCheckTimeout, checks: make(map[string]Checkable)}
}

// AddCheck registers check under name, replacing any previous one. Empty names and nil checks
// are ignored.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Names returns the registered check names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// Check runs every registered check and waits for all of them.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := maps.Clone(c.checks)
	c.mu.RUnlock()

	names := slices.Sorted(maps.Keys(checks))
	results := make([]Result, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			results[i] = c.run(ctx, name, checks[name])
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: StatusReady, Checks: make(map[string]Result, len(names))}
	for i, name := range names {
		report.Checks[name] = results[i]
		if results[i].Status != StatusHealthy {
			report.Status = StatusNotReady
		}
	}
	return report
}

func (c *Checker) run(ctx context.Context, name string, check Checkable) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := check.HealthCheck(ctx)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
		return Result{Status: StatusUnhealthy, Message: err.Error(), LatencyMS: latency}
	}
	return Result{Status: StatusHealthy, Message: "OK", LatencyMS: latency}
}

// DBChecker pings PostgreSQL.
type DBChecker struct {
	db *sql.DB
}

func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.db == nil {
		return sql.ErrConnDone
	}
	return c.db.PingContext(ctx)
}

// Pinger is the part of redis.Client used by RedisChecker.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker sends PING.
type RedisChecker struct {
	pinger Pinger
}

func NewRedisChecker(pinger Pinger) *RedisChecker {
	return &RedisChecker{pinger: pinger}
}

func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if c == nil || c.pinger == nil {
		return redis.ErrClosed
	}
	return c.pinger.Ping(ctx).Err()
}

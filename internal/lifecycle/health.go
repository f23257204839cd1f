package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/cuteforcute-bot/internal/health"
)

// Liveness is the body of the liveness probe.
type Liveness struct {
	Status        string    `json:"status"`
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) Liveness
	Readiness(ctx context.Context) health.Report
}

// Probes answers liveness from process metadata and readiness from dependency checks.
type Probes struct {
	checker   *health.Checker
	service   string
	version   string
	startedAt time.Time
	now       func() time.Time
	log       *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, service, version string, startedAt time.Time, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{
		checker:   checker,
		service:   service,
		version:   version,
		startedAt: startedAt,
		now:       time.Now,
		log:       log,
	}
}

// Liveness reports that the process is up; it never touches dependencies.
func (p *Probes) Liveness(ctx context.Context) Liveness {
	now := p.now().UTC()
	return Liveness{
		Status:        health.StatusHealthy,
		Service:       p.service,
		Version:       p.version,
		Timestamp:     now,
		UptimeSeconds: int64(now.Sub(p.startedAt).Seconds()),
	}
}

// Readiness runs every registered dependency check.
func (p *Probes) Readiness(ctx context.Context) health.Report {
	if p.checker == nil {
		return health.Report{Status: health.StatusReady, Checks: map[string]health.Result{}}
	}

	report := p.checker.Check(ctx)
	if !report.Ready() {
		p.log.Warn("readiness probe failed", slog.Any("checks", report.Checks))
	}
	return report
}

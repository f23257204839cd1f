package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rateLimitChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimit_checks_total",
		Help: "Rate limit checks by backend and result",
	}, []string{"backend", "result"})

	rateLimitRedisErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_redis_errors_total",
		Help: "Redis failures seen by the limiter",
	})

	rateLimitDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_degraded",
		Help: "1 while the limiter runs on the in-memory fallback",
	})
)

// RecordRateLimitCheck counts one evaluated hit on backend (redis or fallback).
func RecordRateLimitCheck(backend string, allowed bool) {
	rateLimitChecksTotal.WithLabelValues(backend, outcome(allowed, "allowed", "rejected")).Inc()
}

func RecordRateLimitRedisError() {
	rateLimitRedisErrorsTotal.Inc()
}

// SetRateLimitDegraded flips the fallback gauge.
func SetRateLimitDegraded(degraded bool) {
	if degraded {
		rateLimitDegraded.Set(1)
		return
	}
	rateLimitDegraded.Set(0)
}

// Package metrics defines the bot's Prometheus series. Everything registers on the default
// registry at init and is served by /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	botCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_commands_total",
		Help: "Updates handled, labeled by command or update kind and status",
	}, []string{"command", "status"})

	commandDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "command_duration_seconds",
		Help:    "Time spent handling one update",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"command"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Errors passed to the central handler, labeled by code and severity",
	}, []string{"type", "severity"})

	interactionsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interactions_resolved_total",
		Help: "Interactions persisted, labeled by decision",
	}, []string{"decision"})

	interactionRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interaction_rejections_total",
		Help: "Decisions that did not produce an interaction, labeled by reason",
	}, []string{"reason"})

	proposalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proposals_total",
		Help: "Inline results chosen by senders",
	})

	cacheRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "action_cache_requests_total",
		Help: "Action cache lookups labeled by key kind and result",
	}, []string{"kind", "result"})

	throttledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "updates_throttled_total",
		Help: "Updates dropped by rate limiting, labeled by the scope that was exhausted",
	}, []string{"scope"})
)

func orUnknown(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

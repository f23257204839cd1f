package metrics

import "time"

// RecordCommand counts one handled update and observes its duration.
func RecordCommand(command, status string, took time.Duration) {
	command = orUnknown(command)
	botCommandsTotal.WithLabelValues(command, orUnknown(status)).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(took.Seconds())
}

// RecordError counts an error by code and severity.
func RecordError(code, severity string) {
	errorsTotal.WithLabelValues(orUnknown(code), orUnknown(severity)).Inc()
}

// RecordInteraction counts a persisted decision.
func RecordInteraction(decision string) {
	interactionsResolvedTotal.WithLabelValues(decision).Inc()
}

// RecordInteractionRejection counts a decision refused before persistence.
func RecordInteractionRejection(reason string) {
	interactionRejectionsTotal.WithLabelValues(orUnknown(reason)).Inc()
}

// RecordProposal counts a chosen inline result.
func RecordProposal() {
	proposalsTotal.Inc()
}

// RecordCacheLookup counts an action cache hit or miss; kind is "all" or "action".
func RecordCacheLookup(kind string, hit bool) {
	cacheRequestsTotal.WithLabelValues(kind, outcome(hit, "hit", "miss")).Inc()
}

// RecordThrottled counts an update dropped because scope (user, cmd or global) ran out.
func RecordThrottled(scope string) {
	throttledTotal.WithLabelValues(orUnknown(scope)).Inc()
}

package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

const defaultCollectInterval = 10 * time.Second

var (
	stateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "state_transitions_total",
		Help: "Admin wizard transitions",
	}, []string{"from", "to"})

	activeWizards = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "admin_wizards_active",
		Help: "Admins currently inside a wizard",
	})

	usersByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "admin_wizards_by_state",
		Help: "Admin wizards per state",
	}, []string{"state"})
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordStateTransition counts one wizard transition.
func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// StateCollector refreshes the wizard gauges from the stored states.
type StateCollector struct {
	fsm      state.StateMachine
	interval time.Duration
}

// NewStateCollector polls fsm every ten seconds.
func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm, interval: defaultCollectInterval}
}

// Run collects immediately and then on every tick until ctx is done. Failed scans keep the
// previous values.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		_ = c.collect(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int, len(states))
	for _, st := range states {
		if st != nil {
			counts[orUnknown(string(st.CurrentState))]++
		}
	}
	// Every known step is always exported, so an emptied step reads 0 instead of vanishing.
	for _, s := range state.TrackedStates() {
		if _, ok := counts[string(s)]; !ok {
			counts[string(s)] = 0
		}
	}

	activeWizards.Set(float64(len(states)))
	usersByState.Reset()
	for label, n := range counts {
		usersByState.WithLabelValues(label).Set(float64(n))
	}
	return nil
}

package errors

import (
	"errors"
	"sync"
	"time"
)

// BreakerState is the position of a CircuitBreaker.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// ErrCircuitOpen is returned without calling fn while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes a CircuitBreaker. Zero fields take the defaults below.
type BreakerConfig struct {
	// FailureRatio trips the breaker once at least MinRequests calls were seen.
	FailureRatio float64
	MinRequests  int
	OpenFor      time.Duration
	// Probes is how many calls half-open lets through; all must succeed to close.
	Probes int
	// OnStateChange runs outside the lock after every transition.
	OnStateChange func(from, to BreakerState)
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureRatio <= 0 {
		c.FailureRatio = 0.5
	}
	if c.MinRequests <= 0 {
		c.MinRequests = 10
	}
	if c.OpenFor <= 0 {
		c.OpenFor = 30 * time.Second
	}
	if c.Probes <= 0 {
		c.Probes = 3
	}
	return c
}

// CircuitBreaker stops calling a failing dependency for OpenFor once its failure ratio is too high.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    BreakerState
	calls    int
	failures int
	inFlight int
	openedAt time.Time
}

// NewCircuitBreaker builds a breaker with default thresholds.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(BreakerConfig{})
}

func NewCircuitBreakerWithConfig(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg.withDefaults(), now: time.Now}
}

// IsOpen reports whether err came from a short-circuited call.
func IsOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// Call runs fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	if err := cb.acquire(); err != nil {
		return err
	}

	err := fn()
	cb.release(err)
	return err
}

// State returns the current position.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()

	var from BreakerState
	moved := false
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.OpenFor {
		from, moved = cb.moveLocked(StateHalfOpen)
	}

	switch {
	case cb.state == StateOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.state == StateHalfOpen && cb.inFlight+cb.calls >= cb.cfg.Probes:
		cb.mu.Unlock()
		cb.notify(from, StateHalfOpen, moved)
		return ErrCircuitOpen
	}

	cb.inFlight++
	cb.mu.Unlock()
	cb.notify(from, StateHalfOpen, moved)
	return nil
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	cb.inFlight--
	cb.calls++
	if err != nil {
		cb.failures++
	}

	var (
		from  BreakerState
		to    BreakerState
		moved bool
	)
	switch cb.state {
	case StateHalfOpen:
		if err != nil {
			to = StateOpen
			from, moved = cb.moveLocked(to)
		} else if cb.calls >= cb.cfg.Probes {
			to = StateClosed
			from, moved = cb.moveLocked(to)
		}
	case StateClosed:
		if cb.calls >= cb.cfg.MinRequests && float64(cb.failures)/float64(cb.calls) >= cb.cfg.FailureRatio {
			to = StateOpen
			from, moved = cb.moveLocked(to)
		}
	}
	cb.mu.Unlock()

	cb.notify(from, to, moved)
}

func (cb *CircuitBreaker) moveLocked(to BreakerState) (BreakerState, bool) {
	from := cb.state
	if from == to {
		return from, false
	}

	cb.state = to
	cb.calls = 0
	cb.failures = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}
	return from, true
}

func (cb *CircuitBreaker) notify(from, to BreakerState, moved bool) {
	if moved && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

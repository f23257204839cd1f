package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

type hook struct {
	name string
	stop func(ctx context.Context) error
}

// Shutdown stops components in the reverse of their registration order, so the bot poller goes
// before the stores it writes to.
type Shutdown struct {
	mu    sync.Mutex
	hooks []hook
	log   *slog.Logger
}

func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}
	return &Shutdown{log: log.With(slog.String("component", "shutdown"))}
}

// Register adds a step. A nil stop is ignored.
func (s *Shutdown) Register(name string, stop func(context.Context) error) {
	if stop == nil {
		return
	}
	s.mu.Lock()
	s.hooks = append(s.hooks, hook{name: name, stop: stop})
	s.mu.Unlock()
}

// RegisterCloser adds a step that calls closer.Close.
func (s *Shutdown) RegisterCloser(name string, closer interface{ Close() error }) {
	if closer == nil {
		return
	}
	s.Register(name, func(context.Context) error { return closer.Close() })
}

// Execute runs and forgets every registered step. A failing step does not stop the ones after
// it; steps reached after ctx ends are skipped and reported. All failures are joined.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := s.hooks
	s.hooks = nil
	s.mu.Unlock()
	slices.Reverse(hooks)

	began := time.Now()
	var errs []error
	for _, h := range hooks {
		log := s.log.With(slog.String("hook", h.name))
		if err := ctx.Err(); err != nil {
			log.Error("shutdown step skipped", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}

		stepBegan := time.Now()
		if err := h.stop(ctx); err != nil {
			log.Error("shutdown step failed", slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
			continue
		}
		log.Info("stopped", slog.Duration("took", time.Since(stepBegan)))
	}

	s.log.Info("shutdown finished", slog.Int("steps", len(hooks)), slog.Int("failed", len(errs)), slog.Duration("took", time.Since(began)))
	return errors.Join(errs...)
}

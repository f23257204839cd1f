package state

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix = "wizard:lock:"
	lockTTL       = 5 * time.Second
)

var (
	// ErrInvalidTransition is returned when the wizard graph has no edge between two states.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrStateNotFound is returned when the admin has no wizard in progress.
	ErrStateNotFound = errors.New("user state not found")
	// ErrStateLocked is returned while another update for the same admin is running.
	ErrStateLocked = errors.New("state is locked, try again later")
)

// releaseLock deletes the lock only if it still carries our token, so an expired lock
// re-acquired by someone else is left alone.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var onTransition = func(from, to string) {}

// RegisterTransitionRecorder installs fn as the observer of successful transitions. nil resets it.
func RegisterTransitionRecorder(fn func(from, to string)) {
	if fn == nil {
		fn = func(string, string) {}
	}
	onTransition = fn
}

// StateMachine drives the admin wizards.
type StateMachine interface {
	GetState(ctx context.Context, userID int64) (*UserState, error)
	// SetState jumps to state unconditionally, replacing the collected context.
	SetState(ctx context.Context, userID int64, state State, contextData map[string]interface{}) error
	// TransitionTo follows an edge of the wizard graph and merges updates into the collected context.
	TransitionTo(ctx context.Context, userID int64, newState State, updates map[string]interface{}) error
	ClearState(ctx context.Context, userID int64) error
	GetAllStates(ctx context.Context) ([]*UserState, error)
}

type machine struct {
	storage Storage
	locks   *redis.Client
	log     *slog.Logger
}

// NewStateMachine builds a StateMachine over storage. When locks is nil updates are not serialized
// across processes.
func NewStateMachine(storage Storage, log *slog.Logger, locks *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}
	return &machine{storage: storage, locks: locks, log: log}
}

func (m *machine) GetState(ctx context.Context, userID int64) (*UserState, error) {
	return m.storage.GetState(ctx, userID)
}

func (m *machine) GetAllStates(ctx context.Context) ([]*UserState, error) {
	return m.storage.GetAllStates(ctx)
}

func (m *machine) SetState(ctx context.Context, userID int64, next State, contextData map[string]interface{}) error {
	return m.locked(ctx, userID, func() error {
		return m.storage.SetState(ctx, userID, &UserState{
			UserID:       userID,
			CurrentState: next,
			Context:      contextData,
		})
	})
}

func (m *machine) TransitionTo(ctx context.Context, userID int64, next State, updates map[string]interface{}) error {
	return m.locked(ctx, userID, func() error {
		current, collected, err := m.load(ctx, userID)
		if err != nil {
			return err
		}

		if !IsTransitionAllowed(current, next) {
			m.log.Warn("invalid state transition",
				slog.Int64("user_id", userID),
				slog.String("from", string(current)),
				slog.String("to", string(next)),
			)
			return ErrInvalidTransition
		}

		maps.Copy(collected, updates)
		if err := m.storage.SetState(ctx, userID, &UserState{
			UserID:       userID,
			CurrentState: next,
			Context:      collected,
		}); err != nil {
			return err
		}

		onTransition(string(current), string(next))
		return nil
	})
}

func (m *machine) ClearState(ctx context.Context, userID int64) error {
	return m.locked(ctx, userID, func() error {
		return m.storage.ClearState(ctx, userID)
	})
}

// load returns the current state and a private copy of its context. A missing record reads as idle.
func (m *machine) load(ctx context.Context, userID int64) (State, map[string]interface{}, error) {
	stored, err := m.storage.GetState(ctx, userID)
	switch {
	case errors.Is(err, ErrStateNotFound), err == nil && stored == nil:
		return StateIdle, map[string]interface{}{}, nil
	case err != nil:
		return "", nil, err
	}

	collected := make(map[string]interface{}, len(stored.Context))
	maps.Copy(collected, stored.Context)
	return stored.CurrentState, collected, nil
}

func (m *machine) locked(ctx context.Context, userID int64, fn func() error) error {
	if m.locks == nil {
		return fn()
	}

	key := lockKeyPrefix + strconv.FormatInt(userID, 10)
	token := uuid.NewString()

	ok, err := m.locks.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire wizard lock", slog.Int64("user_id", userID), slog.Any("error", err))
		return err
	}
	if !ok {
		m.log.Debug("wizard lock busy", slog.Int64("user_id", userID))
		return ErrStateLocked
	}

	defer func() {
		// The caller's ctx may already be cancelled; the lock must still go.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseLock.Run(releaseCtx, m.locks, []string{key}, token).Err(); err != nil {
			m.log.Error("failed to release wizard lock", slog.Int64("user_id", userID), slog.Any("error", err))
		}
	}()

	return fn()
}

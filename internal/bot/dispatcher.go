package bot

import (
	"errors"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/cuteforcute-bot/internal/bot/handlers"
	"github.com/Proton-105/cuteforcute-bot/internal/state"
)

// Dispatcher maps wizard steps to the handler that consumes the admin's next text message.
type Dispatcher struct {
	fsm   state.StateMachine
	steps map[state.State]handlers.Handler
}

// NewDispatcher returns a Dispatcher with no steps.
func NewDispatcher(fsm state.StateMachine) *Dispatcher {
	return &Dispatcher{fsm: fsm, steps: make(map[state.State]handlers.Handler)}
}

// Handle binds h to s. Registration must finish before the bot starts.
func (d *Dispatcher) Handle(s state.State, h handlers.Handler) {
	d.steps[s] = h
}

// Lookup returns the handler for the sender's current step, or nil when the sender is idle,
// has no wizard, or sits in a step nobody handles.
func (d *Dispatcher) Lookup(c telebot.Context) (handlers.Handler, error) {
	if d == nil || d.fsm == nil || c.Sender() == nil {
		return nil, nil
	}

	st, err := d.fsm.GetState(handlers.RequestContext(c), c.Sender().ID)
	switch {
	case errors.Is(err, state.ErrStateNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	case st == nil || st.CurrentState == state.StateIdle:
		return nil, nil
	}
	return d.steps[st.CurrentState], nil
}

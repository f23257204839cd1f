package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransitionAllowed(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateActionAddName, true},
		{StateActionAddName, StateActionAddEmoji, true},
		{StateActionAddEmoji, StateActionAddInfinitive, true},
		{StateActionAddInfinitive, StateActionAddPast, true},
		{StateActionAddPast, StateActionAddNoun, true},
		{StateIdle, StateActionEditValue, true},
		{StateIdle, StateBroadcastText, true},
		{StateBroadcastText, StateBroadcastConfirm, true},
		{StateBroadcastConfirm, StateBroadcastText, true},
		{StateActionAddPast, StateIdle, true},
		{State("whatever"), StateIdle, true},

		{StateActionAddName, StateActionAddPast, false},
		{StateActionAddNoun, StateActionAddPast, false},
		{StateIdle, StateActionAddNoun, false},
		{StateIdle, StateBroadcastConfirm, false},
		{StateActionEditValue, StateActionAddName, false},
		{State("unknown"), StateActionAddEmoji, false},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransitionAllowed(tc.from, tc.to))
		})
	}
}

func TestTrackedStates_CoversEveryStepOnce(t *testing.T) {
	states := TrackedStates()
	assert.Equal(t, StateIdle, states[0])
	assert.Len(t, states, 9)

	seen := make(map[State]bool)
	for _, s := range states {
		assert.False(t, seen[s], "duplicate %s", s)
		seen[s] = true
	}
	assert.True(t, seen[StateBroadcastConfirm])
}

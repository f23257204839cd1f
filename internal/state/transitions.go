package state

// wizards lists every flow in the order its steps run. A flow is entered from idle at its first
// step and can be left for idle from anywhere.
var wizards = [][]State{
	{StateActionAddName, StateActionAddEmoji, StateActionAddInfinitive, StateActionAddPast, StateActionAddNoun},
	{StateActionEditValue},
	{StateBroadcastText, StateBroadcastConfirm},
}

// detours are allowed moves outside a flow's forward order.
var detours = map[State][]State{
	// The admin rewrites the broadcast after seeing the preview.
	StateBroadcastConfirm: {StateBroadcastText},
}

var transitions = buildTransitions()

func buildTransitions() map[State]map[State]bool {
	edges := make(map[State]map[State]bool)
	link := func(from, to State) {
		if edges[from] == nil {
			edges[from] = make(map[State]bool)
		}
		edges[from][to] = true
	}

	for _, steps := range wizards {
		link(StateIdle, steps[0])
		for i := 1; i < len(steps); i++ {
			link(steps[i-1], steps[i])
		}
	}
	for from, targets := range detours {
		for _, to := range targets {
			link(from, to)
		}
	}
	return edges
}

// IsTransitionAllowed reports whether a wizard may move from one state to another.
func IsTransitionAllowed(from, to State) bool {
	return to == StateIdle || transitions[from][to]
}

// TrackedStates lists idle followed by every wizard step, for the state gauges.
func TrackedStates() []State {
	states := []State{StateIdle}
	for _, steps := range wizards {
		states = append(states, steps...)
	}
	return states
}

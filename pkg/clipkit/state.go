package clipkit

// State is a session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateDispatching
	StateTransitioning
	StateTerminated
)

var stateNames = [...]string{
	StateUninitialized: "uninitialized",
	StateInitializing:  "initializing",
	StateReady:         "ready",
	StateDispatching:   "dispatching",
	StateTransitioning: "transitioning",
	StateTerminated:    "terminated",
}

// String returns the lowercase state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// transitions lists the allowed moves out of each state.
// Transitioning may fall back to Ready when persisting the handoff fails.
var transitions = map[State][]State{
	StateUninitialized: {StateInitializing},
	StateInitializing:  {StateReady},
	StateReady:         {StateDispatching, StateTransitioning},
	StateDispatching:   {StateReady},
	StateTransitioning: {StateTerminated, StateReady},
}

// CanTransition reports whether the lifecycle allows moving from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StateHook observes state changes. It runs synchronously after the change
// and must not call back into the session.
type StateHook func(from, to State)

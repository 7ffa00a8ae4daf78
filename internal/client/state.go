package client

import (
	"fmt"
	"sync"
)

// ConnState enumerates the connection lifecycle of the client. All flag-like
// connectivity questions go through the state machine; there is no separate
// "connected" boolean anywhere.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnected
	StateAwaitingUserDecision
	StateReconnecting
	StateExited
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAwaitingUserDecision:
		return "awaiting_user_decision"
	case StateReconnecting:
		return "reconnecting"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// validTransitions is the whole transition relation. StateExited is terminal.
var validTransitions = map[ConnState][]ConnState{
	StateDisconnected:         {StateReconnecting, StateAwaitingUserDecision, StateExited},
	StateConnected:            {StateDisconnected, StateExited},
	StateAwaitingUserDecision: {StateReconnecting, StateExited},
	StateReconnecting:         {StateConnected, StateAwaitingUserDecision},
}

// StateMachine guards the connection state behind a single transition
// function and notifies subscribers of every change. Consumers (a UI, the
// REPL) subscribe instead of polling.
type StateMachine struct {
	mu    sync.Mutex
	state ConnState
	subs  []func(ConnState)
}

// NewStateMachine creates a state machine starting at StateDisconnected.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateDisconnected}
}

// State returns the current state.
func (m *StateMachine) State() ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe registers a callback invoked after every successful transition.
// Callbacks run on the transitioning goroutine and must not block.
func (m *StateMachine) Subscribe(fn func(ConnState)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Transition moves to the given state, or reports why it cannot.
func (m *StateMachine) Transition(to ConnState) error {
	m.mu.Lock()
	from := m.state
	allowed := false
	for _, s := range validTransitions[from] {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	m.state = to
	subs := make([]func(ConnState), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(to)
	}
	return nil
}

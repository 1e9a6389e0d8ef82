package statemachine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNoTransition      = errors.New("statemachine: no transition for event in current state")
	ErrInvalidTransition = errors.New("statemachine: transition requires from, to and event")
)

// State is a named machine state.
type State string

// Event triggers a transition between states.
type Event string

// Action runs as part of a transition, before the state change. A non-nil
// error aborts the transition and leaves the machine in its current state.
type Action func(ctx context.Context, from, to State, data any) error

// Transition defines one edge of the machine.
type Transition struct {
	From   State
	To     State
	Event  Event
	Action Action
}

// T is a shorthand constructor for Transition.
func T(from, to State, event Event, action Action) Transition {
	return Transition{From: from, To: to, Event: event, Action: action}
}

// Machine is a thread-safe finite state machine over a fixed transition
// table.
type Machine struct {
	mu          sync.RWMutex
	initial     State
	current     State
	transitions map[State]map[Event]Transition
}

// New builds a machine starting at initial with the given transition table.
// Duplicate (from, event) pairs keep the first definition.
func New(initial State, transitions ...Transition) (*Machine, error) {
	m := &Machine{
		initial:     initial,
		current:     initial,
		transitions: make(map[State]map[Event]Transition),
	}

	for _, t := range transitions {
		if t.From == "" || t.To == "" || t.Event == "" {
			return nil, ErrInvalidTransition
		}
		if _, ok := m.transitions[t.From]; !ok {
			m.transitions[t.From] = make(map[Event]Transition)
		}
		if _, exists := m.transitions[t.From][t.Event]; !exists {
			m.transitions[t.From][t.Event] = t
		}
	}

	return m, nil
}

// Current returns the machine's current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Fire applies the transition for event from the current state. The action,
// if any, runs before the state change; its error aborts the transition.
func (m *Machine) Fire(ctx context.Context, event Event, data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transitions[m.current][event]
	if !ok {
		return fmt.Errorf("%w: state=%s event=%s", ErrNoTransition, m.current, event)
	}

	if t.Action != nil {
		if err := t.Action(ctx, m.current, t.To, data); err != nil {
			return fmt.Errorf("statemachine: action failed: %w", err)
		}
	}

	m.current = t.To
	return nil
}

// CanFire reports whether event has a transition from the current state.
func (m *Machine) CanFire(event Event) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.transitions[m.current][event]
	return ok
}

// Set forces the machine into the given state without running actions.
// Intended for transitions decided outside the table, such as a fallback
// re-entry into an earlier state.
func (m *Machine) Set(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = state
}

// Reset returns the machine to its initial state.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

package statemachine

import (
	"fmt"
	"sync"
)

// Hook observes a completed transition.
type Hook[S, E comparable] func(from, to S, event E)

// Machine is a thread-safe finite state machine over comparable state and
// event types. Transitions are a lookup table [from][event] -> to.
type Machine[S, E comparable] struct {
	mu      sync.RWMutex
	initial S
	current S
	table   map[S]map[E]S
	hooks   []Hook[S, E]
}

// Option configures a Machine.
type Option[S, E comparable] func(*Machine[S, E])

// WithTransition routes event to state to from every listed source state.
// A later definition for the same source and event replaces the earlier one.
func WithTransition[S, E comparable](event E, to S, from ...S) Option[S, E] {
	return func(m *Machine[S, E]) {
		for _, f := range from {
			if m.table[f] == nil {
				m.table[f] = make(map[E]S)
			}
			m.table[f][event] = to
		}
	}
}

// WithHook registers fn to run after every transition, outside the lock.
func WithHook[S, E comparable](fn Hook[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) {
		if fn != nil {
			m.hooks = append(m.hooks, fn)
		}
	}
}

// New creates a Machine starting in initial.
func New[S, E comparable](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		initial: initial,
		current: initial,
		table:   make(map[S]map[E]S),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Can reports whether event has a transition from the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.table[m.current][event]
	return ok
}

// Fire applies event and returns the new state. The state is unchanged when
// no transition matches.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.current
	to, ok := m.table[from][event]
	if !ok {
		m.mu.Unlock()
		return from, NewErrNoTransitionAvailable(fmt.Sprint(from), fmt.Sprint(event))
	}
	m.current = to
	hooks := m.hooks
	m.mu.Unlock()

	for _, h := range hooks {
		h(from, to, event)
	}
	return to, nil
}

// Reset returns the machine to its initial state without running hooks.
func (m *Machine[S, E]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = m.initial
}

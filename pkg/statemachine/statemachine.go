package statemachine

import (
	"fmt"
	"sync"
)

// Observer is notified after every state change.
type Observer[S, E comparable] func(from, to S, event E)

// Option configures a Machine during construction.
type Option[S, E comparable] func(*Machine[S, E]) error

// WithTransition declares that event moves the machine from one state to another.
func WithTransition[S, E comparable](from S, event E, to S) Option[S, E] {
	return func(m *Machine[S, E]) error {
		events, ok := m.transitions[from]
		if !ok {
			events = make(map[E]S)
			m.transitions[from] = events
		}
		if _, dup := events[event]; dup {
			return fmt.Errorf("%w: %v on %v", ErrDuplicateTransition, from, event)
		}
		events[event] = to
		return nil
	}
}

// Machine is a thread-safe finite state machine over state type S and event type E.
type Machine[S, E comparable] struct {
	current     S
	transitions map[S]map[E]S
	observers   []Observer[S, E]
	mu          sync.RWMutex
}

// New creates a machine in the initial state.
func New[S, E comparable](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{
		current:     initial,
		transitions: make(map[S]map[E]S),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// OnTransition registers an observer.
func (m *Machine[S, E]) OnTransition(fn Observer[S, E]) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Fire applies event and returns the resulting state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.current
	to, ok := m.transitions[from][event]
	if !ok {
		m.mu.Unlock()
		return from, newErrNoTransitionAvailable(from, event)
	}
	m.current = to
	observers := m.observers
	m.mu.Unlock()

	if from != to {
		for _, fn := range observers {
			fn(from, to, event)
		}
	}
	return to, nil
}

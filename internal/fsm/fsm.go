// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsm is a small generic transition-table state machine.
package fsm

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned by Fire when no edge matches.
var ErrInvalidTransition = errors.New("invalid transition")

// Transition describes a single edge in the FSM.
type Transition[S ~string, E ~string] struct {
	From  S
	Event E
	To    S
}

type edge[S ~string, E ~string] struct {
	from  S
	event E
}

// Machine is a strict FSM runner: unknown transitions are errors.
type Machine[S ~string, E ~string] struct {
	mu           sync.Mutex
	state        S
	index        map[edge[S, E]]S
	onTransition func(from, to S, event E)
}

// Option configures a Machine.
type Option[S ~string, E ~string] func(*Machine[S, E])

// WithOnTransition registers a hook called after every applied transition.
// The hook runs without the machine lock held.
func WithOnTransition[S ~string, E ~string](fn func(from, to S, event E)) Option[S, E] {
	return func(m *Machine[S, E]) { m.onTransition = fn }
}

// New builds a machine in state initial. Duplicate (from, event) pairs are
// rejected.
func New[S ~string, E ~string](initial S, transitions []Transition[S, E], opts ...Option[S, E]) (*Machine[S, E], error) {
	idx := make(map[edge[S, E]]S, len(transitions))
	for _, t := range transitions {
		k := edge[S, E]{t.From, t.Event}
		if _, exists := idx[k]; exists {
			return nil, fmt.Errorf("duplicate transition: %s -> %s", t.From, t.Event)
		}
		idx[k] = t.To
	}
	m := &Machine[S, E]{state: initial, index: idx}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MustNew is New for static tables; it panics on a malformed table.
func MustNew[S ~string, E ~string](initial S, transitions []Transition[S, E], opts ...Option[S, E]) *Machine[S, E] {
	m, err := New(initial, transitions, opts...)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Machine[S, E]) State() S {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Can reports whether event is accepted in the current state.
func (m *Machine[S, E]) Can(event E) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.index[edge[S, E]{m.state, event}]
	return ok
}

// Fire applies event atomically and returns the new state. On an invalid
// transition the state is unchanged and the error wraps ErrInvalidTransition.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	from := m.state
	to, ok := m.index[edge[S, E]{from, event}]
	if !ok {
		m.mu.Unlock()
		return from, fmt.Errorf("%w: state=%s event=%s", ErrInvalidTransition, from, event)
	}
	m.state = to
	hook := m.onTransition
	m.mu.Unlock()

	if hook != nil {
		hook(from, to, event)
	}
	return to, nil
}

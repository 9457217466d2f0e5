// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type state string
type event string

var table = []Transition[state, event]{
	{From: "idle", Event: "start", To: "running"},
	{From: "running", Event: "stop", To: "idle"},
	{From: "running", Event: "crash", To: "dead"},
}

func TestFire_AppliesTransitions(t *testing.T) {
	m, err := New[state, event]("idle", table)
	require.NoError(t, err)

	to, err := m.Fire("start")
	require.NoError(t, err)
	assert.Equal(t, state("running"), to)
	assert.Equal(t, state("running"), m.State())

	to, err = m.Fire("stop")
	require.NoError(t, err)
	assert.Equal(t, state("idle"), to)
}

func TestFire_InvalidTransitionLeavesState(t *testing.T) {
	m := MustNew[state, event]("idle", table)

	cur, err := m.Fire("crash")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, state("idle"), cur)
	assert.Equal(t, state("idle"), m.State())
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New[state, event]("idle", append([]Transition[state, event]{{From: "idle", Event: "start", To: "dead"}}, table...))
	assert.Error(t, err)
	assert.Panics(t, func() {
		MustNew[state, event]("idle", []Transition[state, event]{{"a", "x", "b"}, {"a", "x", "c"}})
	})
}

func TestCan(t *testing.T) {
	m := MustNew[state, event]("idle", table)
	assert.True(t, m.Can("start"))
	assert.False(t, m.Can("stop"))
}

func TestOnTransitionHook(t *testing.T) {
	var got []string
	m := MustNew("idle", table, WithOnTransition(func(from, to state, ev event) {
		got = append(got, string(from)+"-"+string(ev)+"->"+string(to))
	}))

	_, _ = m.Fire("start")
	_, _ = m.Fire("start") // invalid, no hook
	_, _ = m.Fire("crash")

	assert.Equal(t, []string{"idle-start->running", "running-crash->dead"}, got)
}

func TestFire_ConcurrentOnlyOneWins(t *testing.T) {
	m := MustNew[state, event]("idle", table)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Fire("start"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

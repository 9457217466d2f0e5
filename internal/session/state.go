// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "github.com/ManuGH/vodplay/internal/fsm"

type State string

const (
	StateIdle       State = "idle"
	StateAttaching  State = "attaching"
	StatePlaying    State = "playing"
	StateRecovering State = "recovering"
	StateFailed     State = "failed"
	StateClosed     State = "closed"
)

// Terminal reports whether no further transition except close can happen.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateClosed
}

type Event string

const (
	EvAttach        Event = "attach"
	EvDirect        Event = "direct"
	EvManifestReady Event = "manifest_ready"
	EvFault         Event = "fault"
	EvRecovered     Event = "recovered"
	EvReattach      Event = "reattach"
	EvFail          Event = "fail"
	EvClose         Event = "close"
)

var transitionsTable = []fsm.Transition[State, Event]{
	// Start path
	{From: StateIdle, Event: EvAttach, To: StateAttaching},
	{From: StateIdle, Event: EvDirect, To: StatePlaying},
	{From: StateAttaching, Event: EvManifestReady, To: StatePlaying},

	// Recovery
	{From: StateAttaching, Event: EvFault, To: StateRecovering},
	{From: StatePlaying, Event: EvFault, To: StateRecovering},
	{From: StateRecovering, Event: EvRecovered, To: StatePlaying},
	{From: StateRecovering, Event: EvReattach, To: StateAttaching},

	// Failure
	{From: StateAttaching, Event: EvFail, To: StateFailed},
	{From: StatePlaying, Event: EvFail, To: StateFailed},
	{From: StateRecovering, Event: EvFail, To: StateFailed},

	// Teardown
	{From: StateIdle, Event: EvClose, To: StateClosed},
	{From: StateAttaching, Event: EvClose, To: StateClosed},
	{From: StatePlaying, Event: EvClose, To: StateClosed},
	{From: StateRecovering, Event: EvClose, To: StateClosed},
	{From: StateFailed, Event: EvClose, To: StateClosed},
}

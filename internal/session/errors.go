// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "errors"

var (
	// ErrUnsupportedEnvironment: adaptive playback needs an engine or native support.
	ErrUnsupportedEnvironment = errors.New("adaptive playback unsupported in this environment")
	// ErrSurfaceBusy: the surface is still bound to a session that was not closed.
	ErrSurfaceBusy = errors.New("surface already bound to an open session")
	// ErrRecoveryExhausted: a recoverable fault kept recurring past its budget.
	ErrRecoveryExhausted = errors.New("recovery attempts exhausted")
	// ErrFatalEngine: the engine reported an unrecoverable error.
	ErrFatalEngine = errors.New("fatal engine error")
	// ErrNotPlaying is returned by Play/Pause outside the playing state.
	ErrNotPlaying = errors.New("session is not playing")
)

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vodplay/internal/fsm"
	xglog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metrics"
)

type stateChange struct {
	from, to State
}

// Session is one playback of one locator on one surface.
//
// All engine handlers are serialized by mu and arbitrate on the machine
// state alone. Engine calls (Load, recovery actions, Destroy) are made with mu
// released since engines may deliver events synchronously.
type Session struct {
	id      string
	ctrl    *Controller
	surface Surface
	locator string
	mode    media.ModeID
	logger  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	machine       *fsm.Machine[State, Event]
	engine        Engine
	err           error
	manifestSeen  bool
	recoveryGen   uint64
	// recoveryFault is the first fatal error reported while a recovery action runs.
	recoveryFault *EngineError
	pending       []stateChange
	onStateChange StateChangeFunc

	networkBudget   int
	mediaBudget     int
	networkAttempts int
	mediaAttempts   int
}

var _ Listener = (*Session)(nil)

func (s *Session) initMachine() {
	s.machine = fsm.MustNew(StateIdle, transitionsTable, fsm.WithOnTransition(func(from, to State, ev Event) {
		// Fire is only called with mu held.
		s.logger.Info().
			Str(xglog.FieldEvent, "session.transition").
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Str("trigger", string(ev)).
			Msg("session state changed")
		metrics.RecordSessionTransition(string(from), string(to))
		s.pending = append(s.pending, stateChange{from: from, to: to})
	}))
}

func (s *Session) ID() string               { return s.id }
func (s *Session) Mode() media.ModeID       { return s.mode }
func (s *Session) Locator() string          { return s.locator }
func (s *Session) Surface() Surface         { return s.surface }
func (s *Session) State() State             { return s.machine.State() }
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the session is closed.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Err returns the failure cause once the session has failed. It wraps
// ErrRecoveryExhausted or ErrFatalEngine.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Engine returns the engine driving the session, or nil for direct and
// native sessions and after teardown.
func (s *Session) Engine() Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// unlock releases mu and delivers queued state change notifications.
func (s *Session) unlock() {
	notes := s.pending
	s.pending = nil
	cb := s.onStateChange
	s.mu.Unlock()
	if cb == nil {
		return
	}
	for _, n := range notes {
		cb(s, n.from, n.to)
	}
}

func (s *Session) fire(ev Event) bool {
	if _, err := s.machine.Fire(ev); err != nil {
		s.logger.Debug().Err(err).Msg("transition rejected")
		return false
	}
	return true
}

func (s *Session) start(env Environment) error {
	if !s.mode.RequiresEngine() || env == EnvNativePlatform {
		if err := s.surface.SetSource(s.locator); err != nil {
			return fmt.Errorf("session: set source: %w", err)
		}
		s.mu.Lock()
		s.fire(EvDirect)
		s.unlock()
		return nil
	}

	engine, err := s.ctrl.factory(s.surface, s)
	if err != nil {
		return fmt.Errorf("session: create engine: %w", err)
	}

	s.mu.Lock()
	s.engine = engine
	s.fire(EvAttach)
	s.unlock()

	engine.Load(s.locator)
	return nil
}

// OnManifestParsed moves an attaching session to playing. It never starts
// playback.
func (s *Session) OnManifestParsed() {
	s.mu.Lock()
	defer s.unlock()

	switch s.machine.State() {
	case StateAttaching:
		s.manifestSeen = true
		s.fire(EvManifestReady)
	case StateRecovering:
		s.manifestSeen = true
	default:
		s.logger.Debug().Str("state", string(s.machine.State())).Msg("ignoring manifest event")
	}
}

// OnFragmentLoaded marks forward progress and refills the recovery budgets.
func (s *Session) OnFragmentLoaded() {
	s.mu.Lock()
	defer s.unlock()

	switch s.machine.State() {
	case StateAttaching, StatePlaying, StateRecovering:
		s.networkAttempts = 0
		s.mediaAttempts = 0
	}
}

// OnError classifies an engine error and recovers, fails or ignores it.
func (s *Session) OnError(e EngineError) {
	s.mu.Lock()
	st := s.machine.State()

	if !e.Fatal {
		s.logger.Warn().Str(xglog.FieldCategory, string(e.Category)).Str("detail", e.Detail).Msg("non-fatal engine error")
		s.unlock()
		return
	}
	if st == StateRecovering {
		if s.recoveryFault == nil {
			s.recoveryFault = &e
		}
		s.logger.Warn().Str(xglog.FieldCategory, string(e.Category)).Str("detail", e.Detail).Msg("fatal engine error during recovery")
		s.unlock()
		return
	}
	if st != StateAttaching && st != StatePlaying {
		s.logger.Debug().Str("state", string(st)).Str(xglog.FieldCategory, string(e.Category)).Msg("ignoring fatal engine error")
		s.unlock()
		return
	}
	if s.engine == nil {
		s.failAndRelease(fmt.Errorf("%w: %s", ErrFatalEngine, e))
		return
	}

	var (
		action  func(Engine) error
		attempt int
	)
	switch e.Category {
	case CategoryNetwork:
		if s.networkAttempts >= s.networkBudget {
			metrics.RecordRecovery(string(e.Category), "exhausted")
			s.failAndRelease(fmt.Errorf("%w: %s after %d attempts", ErrRecoveryExhausted, e, s.networkAttempts))
			return
		}
		s.networkAttempts++
		attempt = s.networkAttempts
		action = Engine.StartLoad
	case CategoryMedia:
		if s.mediaAttempts >= s.mediaBudget {
			metrics.RecordRecovery(string(e.Category), "exhausted")
			s.failAndRelease(fmt.Errorf("%w: %s after %d attempts", ErrRecoveryExhausted, e, s.mediaAttempts))
			return
		}
		s.mediaAttempts++
		attempt = s.mediaAttempts
		action = Engine.RecoverMediaError
	default:
		s.failAndRelease(fmt.Errorf("%w: %s", ErrFatalEngine, e))
		return
	}

	s.fire(EvFault)
	s.recoveryGen++
	s.recoveryFault = nil
	gen := s.recoveryGen
	engine := s.engine
	s.logger.Warn().
		Str(xglog.FieldEvent, "session.recovery_start").
		Str(xglog.FieldCategory, string(e.Category)).
		Int(xglog.FieldAttempt, attempt).
		Str("detail", e.Detail).
		Msg("fatal engine error, attempting recovery")
	metrics.RecordRecovery(string(e.Category), "attempt")
	s.unlock()

	actionErr := action(engine)

	s.mu.Lock()
	if s.machine.State() != StateRecovering || s.recoveryGen != gen {
		s.logger.Debug().Str("state", string(s.machine.State())).Msg("discarding stale recovery result")
		s.unlock()
		return
	}
	if actionErr != nil {
		s.failAndRelease(fmt.Errorf("%w: %s recovery: %v", ErrFatalEngine, e.Category, actionErr))
		return
	}
	if fault := s.recoveryFault; fault != nil {
		s.recoveryFault = nil
		metrics.RecordRecovery(string(e.Category), "failed")
		s.failAndRelease(fmt.Errorf("%w: %s during %s recovery", ErrFatalEngine, *fault, e.Category))
		return
	}
	if s.manifestSeen {
		s.fire(EvRecovered)
	} else {
		s.fire(EvReattach)
	}
	metrics.RecordRecovery(string(e.Category), "recovered")
	s.logger.Info().
		Str(xglog.FieldEvent, "session.recovered").
		Str(xglog.FieldCategory, string(e.Category)).
		Int(xglog.FieldAttempt, attempt).
		Msg("recovery action applied")
	s.unlock()
}

// failAndRelease moves to failed, releases mu and destroys the engine.
// Must be called with mu held.
func (s *Session) failAndRelease(cause error) {
	var engine Engine
	if s.fire(EvFail) {
		s.err = cause
		engine = s.engine
		s.engine = nil
		s.logger.Error().
			Err(cause).
			Str(xglog.FieldEvent, "session.failed").
			Msg("playback failed")
	}
	s.unlock()
	if engine != nil {
		engine.Destroy()
	}
}

// Play starts playback on the surface. Only valid while playing.
func (s *Session) Play() error {
	s.mu.Lock()
	st := s.machine.State()
	s.mu.Unlock()
	if st != StatePlaying {
		return fmt.Errorf("%w (state %s)", ErrNotPlaying, st)
	}
	return s.surface.Play()
}

// Pause pauses the surface. Only valid while playing.
func (s *Session) Pause() error {
	s.mu.Lock()
	st := s.machine.State()
	s.mu.Unlock()
	if st != StatePlaying {
		return fmt.Errorf("%w (state %s)", ErrNotPlaying, st)
	}
	s.surface.Pause()
	return nil
}

// Close tears the session down: the engine is destroyed, the surface is
// detached and the surface is released for a new session. It is idempotent
// and safe from any state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.machine.State() == StateClosed {
		s.mu.Unlock()
		return
	}
	s.fire(EvClose)
	engine := s.engine
	s.engine = nil
	s.cancel()
	s.logger.Info().Str(xglog.FieldEvent, "session.close").Msg("session closed")
	s.unlock()

	if engine != nil {
		engine.Destroy()
	}
	s.surface.ClearSource()
	s.ctrl.unbind(s)
	metrics.SessionClosed()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package session drives the lifecycle of one playback per surface: opening
// the stream on a surface, reacting to engine events, bounded recovery and
// teardown.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metrics"
)

const (
	DefaultNetworkRetries = 3
	DefaultMediaRetries   = 2
)

// StateChangeFunc is invoked after each transition, outside session locks.
type StateChangeFunc func(s *Session, from, to State)

// Option configures a Controller.
type Option func(*Controller)

// WithEngineFactory enables software adaptive playback.
func WithEngineFactory(f EngineFactory) Option {
	return func(c *Controller) { c.factory = f }
}

// WithNetworkRetries bounds StartLoad attempts between progress events.
func WithNetworkRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.networkRetries = n
		}
	}
}

// WithMediaRetries bounds RecoverMediaError attempts between progress events.
func WithMediaRetries(n int) Option {
	return func(c *Controller) {
		if n >= 0 {
			c.mediaRetries = n
		}
	}
}

func WithOnStateChange(fn StateChangeFunc) Option {
	return func(c *Controller) { c.onStateChange = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller opens sessions and enforces one open session per surface.
type Controller struct {
	mu    sync.Mutex
	bound map[string]*Session

	factory        EngineFactory
	networkRetries int
	mediaRetries   int
	onStateChange  StateChangeFunc
	logger         zerolog.Logger
}

func NewController(opts ...Option) *Controller {
	c := &Controller{
		bound:          make(map[string]*Session),
		networkRetries: DefaultNetworkRetries,
		mediaRetries:   DefaultMediaRetries,
		logger:         xglog.WithComponent("session"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Environment reports how adaptive streams would be played on surface.
func (c *Controller) Environment(surface Surface) Environment {
	return DetectEnvironment(c.factory, surface)
}

// Active returns the session bound to surfaceID, if any.
func (c *Controller) Active(surfaceID string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.bound[surfaceID]
	return s, ok
}

// Open starts playback of locator on surface. Playback is never started
// automatically; call (*Session).Play once the session is playing.
// For engine-driven sessions Open returns in the attaching state and the
// manifest result is reported through state changes.
func (c *Controller) Open(ctx context.Context, surface Surface, locator string, mode media.ModeID) (*Session, error) {
	if surface == nil {
		return nil, fmt.Errorf("session: nil surface")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	env := EnvUnavailable
	if mode.RequiresEngine() {
		env = c.Environment(surface)
		if env == EnvUnavailable {
			c.logger.Warn().
				Str(xglog.FieldEvent, "session.open_rejected").
				Str(xglog.FieldSurface, surface.ID()).
				Str(xglog.FieldMode, string(mode)).
				Msg("no adaptive playback environment")
			return nil, ErrUnsupportedEnvironment
		}
	}

	c.mu.Lock()
	if existing, ok := c.bound[surface.ID()]; ok && existing.State() != StateClosed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrSurfaceBusy, surface.ID())
	}
	s := c.newSession(ctx, surface, locator, mode)
	c.bound[surface.ID()] = s
	c.mu.Unlock()

	s.logger.Info().
		Str(xglog.FieldEvent, "session.open").
		Str("environment", env.String()).
		Msg("opening session")
	metrics.SessionOpened()

	if err := s.start(env); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (c *Controller) newSession(ctx context.Context, surface Surface, locator string, mode media.ModeID) *Session {
	id := uuid.New().String()
	sctx, cancel := context.WithCancel(context.WithoutCancel(xglog.ContextWithSessionID(ctx, id)))
	s := &Session{
		id:            id,
		ctrl:          c,
		surface:       surface,
		locator:       locator,
		mode:          mode,
		ctx:           sctx,
		cancel:        cancel,
		networkBudget: c.networkRetries,
		mediaBudget:   c.mediaRetries,
		onStateChange: c.onStateChange,
	}
	s.logger = c.logger.With().
		Str(xglog.FieldSessionID, id).
		Str(xglog.FieldSurface, surface.ID()).
		Str(xglog.FieldMode, string(mode)).
		Str(xglog.FieldLocator, locator).
		Logger()
	s.initMachine()
	return s
}

func (c *Controller) unbind(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.bound[s.surface.ID()]; ok && cur == s {
		delete(c.bound, s.surface.ID())
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ManuGH/vodplay/internal/locator"
	"github.com/ManuGH/vodplay/internal/session"
)

// Player negotiates a plan and opens a session for it.
type Player struct {
	negotiator *Negotiator
	controller *session.Controller
	base       *url.URL
}

type PlayerOption func(*Player)

// WithBaseURL makes the locators handed to surfaces absolute.
func WithBaseURL(base *url.URL) PlayerOption {
	return func(p *Player) { p.base = base }
}

func NewPlayer(n *Negotiator, c *session.Controller, opts ...PlayerOption) *Player {
	p := &Player{negotiator: n, controller: c}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open negotiates itemPath against the surface's capabilities and opens a
// session. Playback is not started.
func (p *Player) Open(ctx context.Context, itemPath string, surface session.Surface) (*session.Session, Plan, error) {
	if surface == nil {
		return nil, Plan{}, fmt.Errorf("playback: nil surface")
	}
	plan, err := p.negotiator.Negotiate(ctx, itemPath, surface)
	if err != nil {
		return nil, Plan{}, err
	}

	target := plan.Locator
	if p.base != nil {
		if target, err = locator.Resolve(p.base, plan.Locator); err != nil {
			return nil, plan, fmt.Errorf("playback: resolve locator: %w", err)
		}
	}

	s, err := p.controller.Open(ctx, surface, target, plan.Mode)
	if err != nil {
		return nil, plan, err
	}
	return s, plan, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package surface provides playback surfaces that are not backed by a real
// media element: the CLI and tests render nothing but still need source and
// play state.
package surface

import (
	"sync"

	"github.com/ManuGH/vodplay/internal/capability"
)

// Headless records source and play state. Its type support is answered by a
// capability.TypeQuerier, so it can impersonate a specific device.
type Headless struct {
	id      string
	querier capability.TypeQuerier

	mu      sync.Mutex
	source  string
	playing bool
}

// NewHeadless returns a surface whose CanPlayType is answered by q (nil
// answers "" for everything).
func NewHeadless(id string, q capability.TypeQuerier) *Headless {
	return &Headless{id: id, querier: q}
}

func (h *Headless) ID() string { return h.id }

func (h *Headless) SetSource(locator string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = locator
	h.playing = false
	return nil
}

func (h *Headless) ClearSource() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = ""
	h.playing = false
}

// Play marks the surface playing. Engine-driven sessions feed the surface
// without a source, so Play does not require one.
func (h *Headless) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = true
	return nil
}

func (h *Headless) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

func (h *Headless) CanPlayType(mime string) string {
	if h.querier == nil {
		return ""
	}
	return h.querier.CanPlayType(mime)
}

// Source returns the attached locator, if any.
func (h *Headless) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

// Playing reports whether Play was called since the last source change.
func (h *Headless) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

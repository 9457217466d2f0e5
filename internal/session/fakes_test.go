// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"sync"

	"github.com/ManuGH/vodplay/internal/capability"
)

type fakeSurface struct {
	id         string
	nativeHLS  bool
	setErr     error
	mu         sync.Mutex
	source     string
	sourceSets int
	clears     int
	plays      int
	pauses     int
}

func newSurface(id string) *fakeSurface { return &fakeSurface{id: id} }

func (f *fakeSurface) ID() string { return f.id }

func (f *fakeSurface) SetSource(loc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.source = loc
	f.sourceSets++
	return nil
}

func (f *fakeSurface) ClearSource() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = ""
	f.clears++
}

func (f *fakeSurface) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	return nil
}

func (f *fakeSurface) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
}

func (f *fakeSurface) CanPlayType(mime string) string {
	if f.nativeHLS && (mime == capability.MIMEHLSApple || mime == capability.MIMEHLSLegacy) {
		return "maybe"
	}
	return ""
}

func (f *fakeSurface) snapshot() (source string, sets, clears, plays int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source, f.sourceSets, f.clears, f.plays
}

type fakeEngine struct {
	mu          sync.Mutex
	listener    Listener
	loaded      []string
	startLoads  int
	mediaRecovs int
	destroys    int
	startErr    error
	mediaErr    error
	// onStartLoad runs inside StartLoad, with no locks held.
	onStartLoad func()
}

func (e *fakeEngine) Load(loc string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loaded = append(e.loaded, loc)
}

func (e *fakeEngine) StartLoad() error {
	e.mu.Lock()
	e.startLoads++
	hook := e.onStartLoad
	err := e.startErr
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (e *fakeEngine) RecoverMediaError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mediaRecovs++
	return e.mediaErr
}

func (e *fakeEngine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroys++
}

func (e *fakeEngine) counts() (startLoads, mediaRecovs, destroys int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startLoads, e.mediaRecovs, e.destroys
}

// engineFactory returns a factory that hands out eng and counts creations.
func engineFactory(eng *fakeEngine, created *int) EngineFactory {
	return func(_ Surface, l Listener) (Engine, error) {
		eng.mu.Lock()
		eng.listener = l
		eng.mu.Unlock()
		*created++
		return eng, nil
	}
}

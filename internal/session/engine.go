// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "fmt"

// Surface is the element media is rendered into.
type Surface interface {
	ID() string
	// SetSource assigns a progressive or natively played locator.
	SetSource(locator string) error
	// ClearSource detaches any source and stops loading.
	ClearSource()
	Play() error
	Pause()
	// CanPlayType follows HTMLMediaElement semantics: "" means no.
	CanPlayType(mime string) string
}

// Engine is a software adaptive-stream engine bound to one surface.
// Load is asynchronous; progress and failures arrive through the Listener.
type Engine interface {
	Load(locator string)
	StartLoad() error
	RecoverMediaError() error
	Destroy()
}

// Listener receives engine events. *Session implements it.
type Listener interface {
	OnManifestParsed()
	OnFragmentLoaded()
	OnError(EngineError)
}

// EngineFactory creates an engine for surface reporting to l.
type EngineFactory func(surface Surface, l Listener) (Engine, error)

type ErrorCategory string

const (
	CategoryNetwork ErrorCategory = "network"
	CategoryMedia   ErrorCategory = "media"
	CategoryMux     ErrorCategory = "mux"
	CategoryKey     ErrorCategory = "key"
	CategoryOther   ErrorCategory = "other"
)

// EngineError is a categorized engine failure.
type EngineError struct {
	Category ErrorCategory
	Fatal    bool
	Detail   string
}

func (e EngineError) Error() string {
	kind := "non-fatal"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("%s %s error: %s", kind, e.Category, e.Detail)
}

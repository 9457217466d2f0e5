// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	// Logger is the structured logger for the daemon
	Logger zerolog.Logger

	// Handler serves the metadata, file, health and metrics routes
	Handler http.Handler
}

// Validate checks that all required dependencies are present.
func (d Deps) Validate() error {
	if d.Handler == nil {
		return ErrMissingHandler
	}
	return nil
}

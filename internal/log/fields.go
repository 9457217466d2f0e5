// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldSurface   = "surface"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Playback fields
	FieldMode     = "mode"
	FieldReason   = "reason"
	FieldLocator  = "locator"
	FieldCategory = "category"
	FieldAttempt  = "attempt"
	FieldCodec    = "codec"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / URL fields
	FieldPath    = "path"
	FieldBaseURL = "base_url"

	// Storage fields
	FieldBackend = "backend"
	FieldKey     = "key"
)

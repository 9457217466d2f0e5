// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by playback and server spans.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Media attributes
	MediaPathKey      = "media.path"
	MediaCodecKey     = "media.video_codec"
	MediaContainerKey = "media.container"
	MediaDurationKey  = "media.duration_s"

	// Playback attributes
	PlaybackModeKey     = "playback.mode"
	PlaybackReasonKey   = "playback.reason"
	PlaybackFallbackKey = "playback.fallback"

	// Session attributes
	SessionIDKey        = "session.id"
	SessionStateKey     = "session.state"
	RecoveryCategoryKey = "session.recovery_category"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// MediaAttributes describes an analysed item. Empty values are omitted.
func MediaAttributes(path, codec, container string, durationS float64) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	if path != "" {
		attrs = append(attrs, attribute.String(MediaPathKey, path))
	}
	if codec != "" {
		attrs = append(attrs, attribute.String(MediaCodecKey, codec))
	}
	if container != "" {
		attrs = append(attrs, attribute.String(MediaContainerKey, container))
	}
	if durationS > 0 {
		attrs = append(attrs, attribute.Float64(MediaDurationKey, durationS))
	}
	return attrs
}

// PlaybackAttributes describes a mode decision.
func PlaybackAttributes(mode, reason string, fallback bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlaybackModeKey, mode),
		attribute.String(PlaybackReasonKey, reason),
		attribute.Bool(PlaybackFallbackKey, fallback),
	}
}

// SessionAttributes describes a playback session.
func SessionAttributes(id, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SessionIDKey, id),
		attribute.String(SessionStateKey, state),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

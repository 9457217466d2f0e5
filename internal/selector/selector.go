// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package selector picks the delivery mode for one item from its metadata,
// the device capabilities and the user preference.
package selector

import (
	"errors"

	"github.com/ManuGH/vodplay/internal/capability"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/preference"
)

// ErrNoPlayableMode is returned when the server reports no supported mode.
var ErrNoPlayableMode = errors.New("no playable mode")

type Reason string

const (
	ReasonUserPreference        Reason = "user_preference"
	ReasonPreferenceUnsupported Reason = "preference_unsupported"
	ReasonNativeHLS             Reason = "native_hls"
	ReasonDirectCompatible      Reason = "direct_compatible"
	ReasonFallback              Reason = "adaptive_fallback"
	ReasonConstrained           Reason = "constrained_by_server"
	ReasonMetadataUnavailable   Reason = "metadata_unavailable"
)

type Decision struct {
	Mode   media.ModeID
	Reason Reason
}

// constrainedOrder is the order in which a supported mode is picked when the
// rule result is not offered by the server.
var constrainedOrder = []media.ModeID{
	media.ModeAdaptive,
	media.ModeOriginal,
	media.ModeLegacy,
	media.ModeDownload,
}

// Select applies the selection rules in order. It is pure.
func Select(desc media.Descriptor, caps capability.Capabilities, pref preference.FormatPreference, supported media.ModeSet) (Decision, error) {
	if supported.Empty() {
		return Decision{}, ErrNoPlayableMode
	}
	return constrain(decide(desc, caps, pref, supported), supported), nil
}

func decide(desc media.Descriptor, caps capability.Capabilities, pref preference.FormatPreference, supported media.ModeSet) Decision {
	if !pref.AutoSelect {
		if supported.Has(pref.PreferredMode) {
			return Decision{Mode: pref.PreferredMode, Reason: ReasonUserPreference}
		}
		return Decision{Mode: media.ModeAdaptive, Reason: ReasonPreferenceUnsupported}
	}

	if caps.NativeHLS {
		return Decision{Mode: media.ModeAdaptive, Reason: ReasonNativeHLS}
	}

	compat := desc.Compatibility
	if !compat.NeedsVideoTranscode && !compat.NeedsAudioTranscode &&
		Decodable(desc.PrimaryVideoCodec(), caps) && supported.Has(media.ModeOriginal) {
		return Decision{Mode: media.ModeOriginal, Reason: ReasonDirectCompatible}
	}

	return Decision{Mode: media.ModeAdaptive, Reason: ReasonFallback}
}

// Decodable reports whether the device can decode the primary video codec for
// direct playback. H.264 is assumed universally decodable; HEVC needs the
// capability flag.
func Decodable(codec string, caps capability.Capabilities) bool {
	if codec == "h264" {
		return true
	}
	return (codec == "hevc" || codec == "h265") && caps.HEVC
}

func constrain(d Decision, supported media.ModeSet) Decision {
	if supported.Has(d.Mode) {
		return d
	}
	for _, id := range constrainedOrder {
		if supported.Has(id) {
			return Decision{Mode: id, Reason: ReasonConstrained}
		}
	}
	// unreachable: supported is non-empty and only holds known modes
	return d
}

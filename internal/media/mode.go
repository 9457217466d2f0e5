// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import "strings"

// ModeID identifies a delivery strategy. The string values are the wire ids
// used by the metadata endpoint and persisted preferences.
type ModeID string

const (
	ModeOriginal ModeID = "original" // direct file stream, no transcoding
	ModeAdaptive ModeID = "hls"      // adaptive segmented stream (HLS)
	ModeLegacy   ModeID = "legacy"   // H.264 baseline + AAC MP4 for old devices
	ModeDownload ModeID = "download" // raw download link
)

// FormatType tags the delivery format of a mode.
type FormatType string

const (
	FormatOriginal FormatType = "original"
	FormatHLS      FormatType = "hls"
	FormatLegacy   FormatType = "legacy"
	FormatCustom   FormatType = "custom"
)

// KnownModes lists every mode in canonical order.
var KnownModes = []ModeID{ModeOriginal, ModeAdaptive, ModeLegacy, ModeDownload}

// ParseModeID normalizes s and reports whether it names a known mode.
func ParseModeID(s string) (ModeID, bool) {
	id := ModeID(strings.ToLower(strings.TrimSpace(s)))
	switch id {
	case ModeOriginal, ModeAdaptive, ModeLegacy, ModeDownload:
		return id, true
	}
	return "", false
}

// Valid reports whether m is one of the known modes.
func (m ModeID) Valid() bool {
	_, ok := ParseModeID(string(m))
	return ok && string(m) == strings.ToLower(strings.TrimSpace(string(m)))
}

// RequiresEngine reports whether playing m needs an adaptive-stream engine
// (or native adaptive playback). Only the segmented mode does; the other modes
// are progressive files assigned to the surface directly.
func (m ModeID) RequiresEngine() bool {
	return m == ModeAdaptive
}

func (m ModeID) String() string { return string(m) }

// DeliveryMode is one entry of the server-reported supported-mode list.
type DeliveryMode struct {
	ID                  ModeID     `json:"id"`
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	RequiresTranscoding bool       `json:"requires_transcoding"`
	FormatType          FormatType `json:"format_type"`
}

// ModeSet is the subset of modes the server supports for one item.
type ModeSet map[ModeID]struct{}

// NewModeSet builds a set from ids; unknown ids are dropped.
func NewModeSet(ids ...ModeID) ModeSet {
	s := make(ModeSet, len(ids))
	for _, id := range ids {
		if id.Valid() {
			s[id] = struct{}{}
		}
	}
	return s
}

// Has reports whether id is in the set.
func (s ModeSet) Has(id ModeID) bool {
	_, ok := s[id]
	return ok
}

// Empty reports whether no playable mode is available.
func (s ModeSet) Empty() bool { return len(s) == 0 }

// Ordered returns the members in canonical order.
func (s ModeSet) Ordered() []ModeID {
	out := make([]ModeID, 0, len(s))
	for _, id := range KnownModes {
		if s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

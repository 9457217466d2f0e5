// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import "github.com/ManuGH/vodplay/internal/capability"

// Environment is how adaptive streams can be played on a surface.
type Environment int

const (
	EnvUnavailable Environment = iota
	EnvSoftwareEngine
	EnvNativePlatform
)

func (e Environment) String() string {
	switch e {
	case EnvSoftwareEngine:
		return "software_engine"
	case EnvNativePlatform:
		return "native_platform"
	default:
		return "unavailable"
	}
}

// DetectEnvironment prefers a software engine and falls back to native
// adaptive playback when the surface understands the playlist MIME type.
func DetectEnvironment(factory EngineFactory, surface Surface) Environment {
	if factory != nil {
		return EnvSoftwareEngine
	}
	if surface != nil &&
		(surface.CanPlayType(capability.MIMEHLSApple) != "" || surface.CanPlayType(capability.MIMEHLSLegacy) != "") {
		return EnvNativePlatform
	}
	return EnvUnavailable
}

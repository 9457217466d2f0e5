// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package useragent

import "strings"

// Family is a coarse browser/player classification.
type Family string

const (
	FamilySafari   Family = "safari"
	FamilyChromium Family = "chromium"
	FamilyFirefox  Family = "firefox"
	FamilyApple    Family = "apple_native"
	FamilyUnknown  Family = "unknown"
)

// IsSafariBrowser detects Safari on macOS/iOS.
// Safari has "Safari/" and "AppleWebKit/", but not "Chrome/".
func IsSafariBrowser(userAgent string) bool {
	ua := userAgent
	hasSafari := strings.Contains(ua, "Safari/")
	hasChrome := strings.Contains(ua, "Chrome/") || strings.Contains(ua, "Chromium/") || strings.Contains(ua, "CriOS/")
	hasWebKit := strings.Contains(ua, "AppleWebKit/")
	return hasWebKit && hasSafari && !hasChrome
}

// IsNativeAppleClient detects native Apple clients (AVFoundation/WebKit HLS stack).
func IsNativeAppleClient(userAgent string) bool {
	ua := userAgent
	return strings.Contains(ua, "AppleCoreMedia") ||
		strings.Contains(ua, "CFNetwork") ||
		strings.Contains(ua, "VideoToolbox")
}

// IsIOSLike is a broad check for iOS/iPadOS devices and Apple network stacks.
// Every browser on iOS uses WebKit and therefore plays HLS natively.
func IsIOSLike(userAgent string) bool {
	ua := userAgent
	return strings.Contains(ua, "iPhone") ||
		strings.Contains(ua, "iPad") ||
		strings.Contains(ua, "iOS") ||
		IsNativeAppleClient(ua)
}

// IsChromium detects Chrome, Chromium, Edge (Chromium) and Opera.
func IsChromium(userAgent string) bool {
	return strings.Contains(userAgent, "Chrome/") || strings.Contains(userAgent, "Chromium/")
}

// IsFirefox detects Gecko based Firefox builds.
func IsFirefox(userAgent string) bool {
	return strings.Contains(userAgent, "Firefox/")
}

// Classify maps a User-Agent string to a Family. Apple stacks win over the
// browser token because iOS Chrome/Firefox are WebKit underneath.
func Classify(userAgent string) Family {
	switch {
	case IsNativeAppleClient(userAgent):
		return FamilyApple
	case IsIOSLike(userAgent), IsSafariBrowser(userAgent):
		return FamilySafari
	case IsChromium(userAgent):
		return FamilyChromium
	case IsFirefox(userAgent):
		return FamilyFirefox
	}
	return FamilyUnknown
}

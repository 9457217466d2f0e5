// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package locator maps an item path and a delivery mode to the server-relative
// stream URL. The templates are a contract with the serving backend.
package locator

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ManuGH/vodplay/internal/core/urlutil"
	"github.com/ManuGH/vodplay/internal/media"
)

// PlaylistName is the manifest file name appended to adaptive locators.
const PlaylistName = "playlist.m3u8"

// Locate returns the server-relative locator for itemPath under mode.
// Unknown modes use the adaptive template.
func Locate(itemPath string, mode media.ModeID) string {
	p := EncodePath(itemPath)
	switch mode {
	case media.ModeOriginal, media.ModeDownload:
		return "/video/" + p
	case media.ModeLegacy:
		return "/legacy/" + p
	default:
		return "/hls/" + p + "/" + PlaylistName
	}
}

// EncodePath percent-encodes every "/"-separated segment independently and
// rejoins them, so separators survive and everything else is escaped.
func EncodePath(itemPath string) string {
	segments := strings.Split(itemPath, "/")
	for i, s := range segments {
		segments[i] = EscapeComponent(s)
	}
	return strings.Join(segments, "/")
}

// EscapeComponent matches encodeURIComponent: alphanumerics and the marks
// - _ . ! ~ * ' ( ) stay literal, every other UTF-8 byte is percent-encoded.
// url.PathEscape differs on both sides (it keeps ':' '@' '&' and escapes '!').
func EscapeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreservedComponent(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreservedComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// Resolve turns a locator into an absolute URL against the server base.
func Resolve(base *url.URL, loc string) (string, error) {
	if base == nil {
		return "", fmt.Errorf("locator: nil base url")
	}
	return urlutil.Resolve(base.String(), loc)
}

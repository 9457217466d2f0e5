// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import (
	"strings"

	"github.com/ManuGH/vodplay/internal/core/useragent"
)

// StaticQuerier answers from a fixed list of MIME types, e.g. taken from
// configuration for a known device.
type StaticQuerier struct {
	types map[string]struct{}
}

// NewStaticQuerier builds a querier that reports "probably" for each listed type.
// Matching ignores case and whitespace differences.
func NewStaticQuerier(types ...string) *StaticQuerier {
	q := &StaticQuerier{types: make(map[string]struct{}, len(types))}
	for _, t := range types {
		q.types[normalizeMIME(t)] = struct{}{}
	}
	return q
}

func (q *StaticQuerier) CanPlayType(mime string) string {
	if _, ok := q.types[normalizeMIME(mime)]; ok {
		return "probably"
	}
	return ""
}

func normalizeMIME(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

// UserAgentQuerier answers heuristically from a User-Agent string. It is the
// fallback when the host cannot be asked directly, e.g. a server deciding for
// a remote browser.
type UserAgentQuerier struct {
	Family useragent.Family
}

// NewUserAgentQuerier classifies ua.
func NewUserAgentQuerier(ua string) UserAgentQuerier {
	return UserAgentQuerier{Family: useragent.Classify(ua)}
}

func (q UserAgentQuerier) CanPlayType(mime string) string {
	switch normalizeMIME(mime) {
	case normalizeMIME(MIMEH264):
		if q.Family != useragent.FamilyUnknown {
			return "probably"
		}
	case normalizeMIME(MIMEHEVCHev1), normalizeMIME(MIMEHEVCHvc1):
		if q.Family == useragent.FamilySafari || q.Family == useragent.FamilyApple {
			return "maybe"
		}
	case normalizeMIME(MIMEVP9):
		if q.Family == useragent.FamilyChromium || q.Family == useragent.FamilyFirefox {
			return "probably"
		}
	case normalizeMIME(MIMEAV1):
		if q.Family == useragent.FamilyChromium || q.Family == useragent.FamilyFirefox {
			return "maybe"
		}
	case normalizeMIME(MIMEHLSApple), normalizeMIME(MIMEHLSLegacy):
		if q.Family == useragent.FamilySafari || q.Family == useragent.FamilyApple {
			return "maybe"
		}
	}
	return ""
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package capability determines which codecs and containers a playback
// environment decodes natively.
package capability

// MIME queries issued by Probe. They are the strings a browser media element
// is asked through canPlayType.
const (
	MIMEH264      = `video/mp4; codecs="avc1.42E01E"`
	MIMEHEVCHev1  = `video/mp4; codecs="hev1.1.6.L93.B0"`
	MIMEHEVCHvc1  = `video/mp4; codecs="hvc1.1.6.L93.B0"`
	MIMEVP9       = `video/webm; codecs="vp9"`
	MIMEAV1       = `video/mp4; codecs="av01.0.05M.08"`
	MIMEHLSApple  = "application/vnd.apple.mpegurl"
	MIMEHLSLegacy = "application/x-mpegURL"
)

// TypeQuerier answers canPlayType-style questions. An empty answer means the
// type is not playable; "maybe" and "probably" both mean it is.
type TypeQuerier interface {
	CanPlayType(mime string) string
}

// Capabilities is a snapshot of native decode support. Compute it once per
// playback session and treat it as immutable.
type Capabilities struct {
	H264      bool `json:"supportsH264"`
	HEVC      bool `json:"supportsHEVC"`
	VP9       bool `json:"supportsVP9"`
	AV1       bool `json:"supportsAV1"`
	NativeHLS bool `json:"supportsHLS"`
}

// Probe queries q for every codec we care about. It never fails: a nil
// querier, an empty answer or a panicking querier all resolve to false.
func Probe(q TypeQuerier) Capabilities {
	if q == nil {
		return Capabilities{}
	}
	can := func(mime string) bool { return canPlay(q, mime) }
	return Capabilities{
		H264:      can(MIMEH264),
		HEVC:      can(MIMEHEVCHev1) || can(MIMEHEVCHvc1),
		VP9:       can(MIMEVP9),
		AV1:       can(MIMEAV1),
		NativeHLS: can(MIMEHLSApple) || can(MIMEHLSLegacy),
	}
}

func canPlay(q TypeQuerier, mime string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return q.CanPlayType(mime) != ""
}

// Decodes reports whether the codec named by an ffprobe codec_name is
// decodable according to c. Unknown codecs are not decodable.
func (c Capabilities) Decodes(codec string) bool {
	switch codec {
	case "h264", "avc", "avc1":
		return c.H264
	case "hevc", "h265":
		return c.HEVC
	case "vp9":
		return c.VP9
	case "av1":
		return c.AV1
	}
	return false
}

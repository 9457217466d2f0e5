// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package hlsengine

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrNotPlaylist is returned when the body does not start with #EXTM3U.
var ErrNotPlaylist = errors.New("no EXTM3U delimiter")

// Segment is one media segment of a media playlist.
type Segment struct {
	URI      string
	Duration time.Duration
	PDT      time.Time
}

// MediaPlaylist is the parsed timeline of a media playlist.
type MediaPlaylist struct {
	TargetDuration time.Duration
	MediaSequence  int64
	Segments       []Segment

	HasPDT        bool
	FirstPDT      time.Time
	LastPDT       time.Time
	LastDuration  time.Duration
	TotalDuration time.Duration
	IsVOD         bool // #EXT-X-PLAYLIST-TYPE:VOD or #EXT-X-ENDLIST
}

// Variant is one #EXT-X-STREAM-INF entry of a master playlist.
type Variant struct {
	URI        string
	Bandwidth  int64
	Resolution string
	Codecs     string
}

// IsMaster reports whether body is a master (multivariant) playlist.
func IsMaster(body string) bool {
	return strings.Contains(body, "#EXT-X-STREAM-INF:")
}

func checkHeader(body string) error {
	first := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
	if !strings.HasPrefix(first, "#EXTM3U") {
		return ErrNotPlaylist
	}
	return nil
}

// ParseMaster returns the variants of a master playlist ordered by ascending
// bandwidth. Playback starts on the first (lowest) variant.
func ParseMaster(body string) ([]Variant, error) {
	if err := checkHeader(body); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	var (
		variants []Variant
		pending  *Variant
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXT-X-STREAM-INF:") {
			attrs := parseAttributes(strings.TrimPrefix(line, "#EXT-X-STREAM-INF:"))
			v := Variant{
				Resolution: attrs["RESOLUTION"],
				Codecs:     attrs["CODECS"],
			}
			if bw, err := strconv.ParseInt(attrs["BANDWIDTH"], 10, 64); err == nil {
				v.Bandwidth = bw
			}
			pending = &v
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		if pending != nil {
			pending.URI = line
			variants = append(variants, *pending)
			pending = nil
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(variants) == 0 {
		return nil, fmt.Errorf("master playlist has no variants")
	}

	sort.SliceStable(variants, func(i, j int) bool { return variants[i].Bandwidth < variants[j].Bandwidth })
	return variants, nil
}

// parseAttributes splits an attribute list, honoring quoted values.
func parseAttributes(s string) map[string]string {
	out := make(map[string]string)
	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var val string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				val, s = s[1:], ""
			} else {
				val, s = s[1:end+1], s[end+2:]
			}
		} else {
			end := strings.IndexByte(s, ',')
			if end < 0 {
				val, s = s, ""
			} else {
				val, s = s[:end], s[end:]
			}
		}
		out[key] = val
		s = strings.TrimPrefix(s, ",")
	}
	return out
}

// ParseMedia parses a media playlist and validates its timeline:
// PDT must never jump backwards, and a live playlist that carries PDT must
// carry it on every segment.
func ParseMedia(body string) (*MediaPlaylist, error) {
	if err := checkHeader(body); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	pl := &MediaPlaylist{}

	var (
		nextDuration       time.Duration
		nextPDT            time.Time
		hasEndList         bool
		hasPlaylistTypeVOD bool
		lastPDT            time.Time
		segmentsWithPDT    int
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "#EXT-X-PLAYLIST-TYPE:VOD"):
			hasPlaylistTypeVOD = true
			continue
		case line == "#EXT-X-ENDLIST":
			hasEndList = true
			continue
		case strings.HasPrefix(line, "#EXT-X-TARGETDURATION:"):
			secs, err := strconv.ParseFloat(strings.TrimPrefix(line, "#EXT-X-TARGETDURATION:"), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid target duration: %s", line)
			}
			pl.TargetDuration = time.Duration(secs * float64(time.Second))
			continue
		case strings.HasPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"):
			seq, err := strconv.ParseInt(strings.TrimPrefix(line, "#EXT-X-MEDIA-SEQUENCE:"), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid media sequence: %s", line)
			}
			pl.MediaSequence = seq
			continue
		case strings.HasPrefix(line, "#EXT-X-PROGRAM-DATE-TIME:"):
			pdtStr := strings.TrimPrefix(line, "#EXT-X-PROGRAM-DATE-TIME:")
			t, err := time.Parse(time.RFC3339Nano, pdtStr)
			if err != nil {
				return nil, fmt.Errorf("invalid PDT format: %s", pdtStr)
			}
			if !lastPDT.IsZero() && t.Before(lastPDT) {
				return nil, fmt.Errorf("PDT non-monotonic: %v < %v", t, lastPDT)
			}
			nextPDT = t
			lastPDT = t
			continue
		case strings.HasPrefix(line, "#EXTINF:"):
			durPart := strings.TrimPrefix(line, "#EXTINF:")
			if idx := strings.Index(durPart, ","); idx != -1 {
				durPart = durPart[:idx]
			}
			secs, err := strconv.ParseFloat(durPart, 64)
			if err != nil || secs < 0 {
				return nil, fmt.Errorf("invalid EXTINF duration: %s", durPart)
			}
			nextDuration = time.Duration(secs * float64(time.Second))
			continue
		case strings.HasPrefix(line, "#"):
			continue
		}

		// URI line
		seg := Segment{URI: line, Duration: nextDuration, PDT: nextPDT}
		pl.Segments = append(pl.Segments, seg)
		pl.TotalDuration += nextDuration
		pl.LastDuration = nextDuration
		if !nextPDT.IsZero() {
			segmentsWithPDT++
			if pl.FirstPDT.IsZero() {
				pl.FirstPDT = nextPDT
			}
			pl.LastPDT = nextPDT
		}
		nextDuration = 0
		nextPDT = time.Time{}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	pl.IsVOD = hasPlaylistTypeVOD || hasEndList
	pl.HasPDT = segmentsWithPDT > 0

	if len(pl.Segments) == 0 {
		return nil, fmt.Errorf("media playlist has no segments")
	}
	if !pl.IsVOD && pl.HasPDT && segmentsWithPDT != len(pl.Segments) {
		return nil, fmt.Errorf("partial PDT coverage in live playlist (found %d/%d)", segmentsWithPDT, len(pl.Segments))
	}
	return pl, nil
}

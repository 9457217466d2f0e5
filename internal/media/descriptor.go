// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media holds the server-reported facts about a media item and the
// delivery modes it can be played with.
package media

import "strings"

// Format describes the container.
type Format struct {
	Name     string  `json:"name"`      // e.g. "matroska,webm"
	LongName string  `json:"long_name"` // e.g. "Matroska / WebM"
	Duration float64 `json:"duration"`  // seconds
	Size     int64   `json:"size"`      // bytes
	Bitrate  int64   `json:"bitrate"`
}

// VideoTrack describes one video stream.
type VideoTrack struct {
	CodecName     string  `json:"codec_name"` // e.g. "h264", "hevc", "vp9", "av1"
	CodecLongName string  `json:"codec_long_name"`
	Profile       string  `json:"profile"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	FPS           float64 `json:"fps"`
	Bitrate       int64   `json:"bitrate"`
	PixFmt        string  `json:"pix_fmt"`
	BitDepth      int     `json:"bit_depth"`
}

// AudioTrack describes one audio stream.
type AudioTrack struct {
	CodecName     string `json:"codec_name"` // e.g. "aac", "ac3", "dts", "flac"
	CodecLongName string `json:"codec_long_name"`
	SampleRate    int    `json:"sample_rate"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout"`
	Bitrate       int64  `json:"bitrate"`
	BitDepth      int    `json:"bit_depth"`
}

// SubtitleTrack describes one subtitle stream.
type SubtitleTrack struct {
	CodecName string `json:"codec_name"`
	Language  string `json:"language"`
	Title     string `json:"title"`
	Forced    bool   `json:"forced"`
}

// Compatibility is the server's summary of what the item needs.
type Compatibility struct {
	IsHLSCompatible     bool `json:"is_hls_compatible"`     // H.264/H.265 + AAC/MP3
	NeedsVideoTranscode bool `json:"needs_video_transcode"` // video codec needs transcoding
	NeedsAudioTranscode bool `json:"needs_audio_transcode"` // audio codec needs transcoding
	IsLegacyCompatible  bool `json:"is_legacy_compatible"`  // H.264 Baseline/Main + AAC in MP4
}

// Descriptor is the complete fact sheet for one item. It is treated as
// immutable once fetched.
type Descriptor struct {
	Format          Format          `json:"format"`
	VideoStreams    []VideoTrack    `json:"video_streams"`
	AudioStreams    []AudioTrack    `json:"audio_streams"`
	SubtitleStreams []SubtitleTrack `json:"subtitle_streams"`
	Compatibility   Compatibility   `json:"compatibility"`
	PlaybackModes   []DeliveryMode  `json:"playback_modes"`
}

// PrimaryVideoCodec returns the lower-cased codec of the first video stream, or "".
func (d Descriptor) PrimaryVideoCodec() string {
	if len(d.VideoStreams) == 0 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(d.VideoStreams[0].CodecName))
}

// SupportedModes returns the set of mode ids the server declared for this item.
func (d Descriptor) SupportedModes() ModeSet {
	ids := make([]ModeID, 0, len(d.PlaybackModes))
	for _, m := range d.PlaybackModes {
		ids = append(ids, m.ID)
	}
	return NewModeSet(ids...)
}

// Mode returns the server-provided entry for id.
func (d Descriptor) Mode(id ModeID) (DeliveryMode, bool) {
	for _, m := range d.PlaybackModes {
		if m.ID == id {
			return m, true
		}
	}
	return DeliveryMode{}, false
}

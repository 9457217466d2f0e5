// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probe

import (
	"fmt"
	"strings"

	"github.com/ManuGH/vodplay/internal/media"
)

// Analyze converts ffprobe output into a Descriptor with compatibility flags
// and the full list of playback modes.
func Analyze(o Output) media.Descriptor {
	d := media.Descriptor{
		Format: media.Format{
			Name:     o.Format.FormatName,
			LongName: o.Format.FormatLongName,
			Duration: o.Format.Duration.float(),
			Size:     o.Format.Size.int64(),
			Bitrate:  o.Format.BitRate.int64(),
		},
		VideoStreams:    []media.VideoTrack{},
		AudioStreams:    []media.AudioTrack{},
		SubtitleStreams: []media.SubtitleTrack{},
	}

	for _, s := range o.Streams {
		switch s.CodecType {
		case "video":
			d.VideoStreams = append(d.VideoStreams, media.VideoTrack{
				CodecName:     s.CodecName,
				CodecLongName: s.CodecLongName,
				Profile:       s.Profile,
				Width:         s.Width,
				Height:        s.Height,
				PixFmt:        s.PixFmt,
				FPS:           parseRate(s.RFrameRate),
				Bitrate:       s.BitRate.int64(),
				BitDepth:      videoBitDepth(s),
			})
		case "audio":
			d.AudioStreams = append(d.AudioStreams, media.AudioTrack{
				CodecName:     s.CodecName,
				CodecLongName: s.CodecLongName,
				SampleRate:    s.SampleRate.int(),
				Channels:      s.Channels,
				ChannelLayout: s.ChannelLayout,
				Bitrate:       s.BitRate.int64(),
				BitDepth:      s.BitsPerSample,
			})
		case "subtitle":
			d.SubtitleStreams = append(d.SubtitleStreams, media.SubtitleTrack{
				CodecName: s.CodecName,
				Language:  s.Tags["language"],
				Title:     s.Tags["title"],
				Forced:    s.Disposition["forced"] == 1,
			})
		}
	}

	d.Compatibility = Compatibility(d)
	d.PlaybackModes = PlaybackModes(d)
	return d
}

func videoBitDepth(s Stream) int {
	if v := s.BitsPerRawSample.int(); v > 0 {
		return v
	}
	switch {
	case strings.Contains(s.PixFmt, "10"):
		return 10
	case strings.Contains(s.PixFmt, "12"):
		return 12
	}
	return 8
}

func isHLSVideoCodec(codec string) bool {
	return codec == "h264" || codec == "hevc" || codec == "h265"
}

func isHLSAudioCodec(codec string) bool {
	return codec == "aac" || codec == "mp3"
}

// isLegacyVideo matches H.264 Baseline/Main at 8 bit, which old devices decode.
func isLegacyVideo(v media.VideoTrack) bool {
	if v.CodecName != "h264" {
		return false
	}
	profile := strings.ToLower(v.Profile)
	return (strings.Contains(profile, "baseline") || strings.Contains(profile, "main")) && v.BitDepth <= 8
}

// Compatibility derives the summary flags from the streams and container.
func Compatibility(d media.Descriptor) media.Compatibility {
	var hlsVideo, nonHLSVideo, legacyVideo bool
	for _, v := range d.VideoStreams {
		if isHLSVideoCodec(v.CodecName) {
			hlsVideo = true
		} else {
			nonHLSVideo = true
		}
		if isLegacyVideo(v) {
			legacyVideo = true
		}
	}

	var hlsAudio, nonHLSAudio bool
	for _, a := range d.AudioStreams {
		if isHLSAudioCodec(a.CodecName) {
			hlsAudio = true
		} else {
			nonHLSAudio = true
		}
	}

	isMP4 := strings.Contains(d.Format.Name, "mp4")

	return media.Compatibility{
		IsHLSCompatible:     hlsVideo && hlsAudio,
		NeedsVideoTranscode: nonHLSVideo || !hlsVideo,
		NeedsAudioTranscode: nonHLSAudio || !hlsAudio,
		IsLegacyCompatible:  legacyVideo && hlsAudio && isMP4,
	}
}

// PlaybackModes lists the modes offered for d, always in the order
// original, hls, legacy, download.
func PlaybackModes(d media.Descriptor) []media.DeliveryMode {
	c := d.Compatibility

	original := media.DeliveryMode{
		ID:         media.ModeOriginal,
		Name:       "Original Quality",
		FormatType: media.FormatOriginal,
	}
	if len(d.VideoStreams) > 0 {
		v := d.VideoStreams[0]
		var b strings.Builder
		fmt.Fprintf(&b, "%s %dx%d", v.CodecName, v.Width, v.Height)
		if v.BitDepth > 8 {
			fmt.Fprintf(&b, " %d-bit", v.BitDepth)
		}
		if len(d.AudioStreams) > 0 {
			fmt.Fprintf(&b, " + %s", d.AudioStreams[0].CodecName)
		}
		b.WriteString(" (No transcoding, best quality)")
		original.Description = b.String()
	} else {
		original.Description = "Original file without any transcoding"
	}

	hls := media.DeliveryMode{
		ID:         media.ModeAdaptive,
		Name:       "HLS Streaming",
		FormatType: media.FormatHLS,
	}
	if c.IsHLSCompatible {
		hls.Description = "Stream copy (no re-encoding) - Best quality with seeking support"
	} else {
		hls.RequiresTranscoding = true
		var b strings.Builder
		b.WriteString("Transcode to H.264/AAC")
		if c.NeedsVideoTranscode {
			b.WriteString(" (video)")
		}
		if c.NeedsAudioTranscode {
			b.WriteString(" (audio)")
		}
		b.WriteString(" - Recommended for web browsers")
		hls.Description = b.String()
	}

	legacy := media.DeliveryMode{
		ID:         media.ModeLegacy,
		Name:       "Legacy Compatible",
		FormatType: media.FormatLegacy,
	}
	if c.IsLegacyCompatible {
		legacy.Description = "H.264 Baseline/Main + AAC in MP4 (Direct play on all devices)"
	} else {
		legacy.RequiresTranscoding = true
		legacy.Description = "Transcode to H.264 Baseline + AAC MP4 - Compatible with all devices (old TVs, phones)"
	}

	download := media.DeliveryMode{
		ID:          media.ModeDownload,
		Name:        "Direct Download/Link",
		FormatType:  media.FormatOriginal,
		Description: "Direct link to original file - For native video players",
	}

	return []media.DeliveryMode{original, hls, legacy, download}
}

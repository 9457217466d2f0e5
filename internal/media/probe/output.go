// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package probe

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Output mirrors the subset of `ffprobe -show_format -show_streams` JSON we use.
// ffprobe prints most numbers as strings; flexString accepts both.
type Output struct {
	Streams []Stream `json:"streams"`
	Format  struct {
		FormatName     string     `json:"format_name"`
		FormatLongName string     `json:"format_long_name"`
		Duration       flexString `json:"duration"`
		Size           flexString `json:"size"`
		BitRate        flexString `json:"bit_rate"`
	} `json:"format"`
}

// Stream is one entry of the ffprobe streams array.
type Stream struct {
	CodecType        string            `json:"codec_type"`
	CodecName        string            `json:"codec_name"`
	CodecLongName    string            `json:"codec_long_name"`
	Profile          string            `json:"profile"`
	Width            int               `json:"width"`
	Height           int               `json:"height"`
	PixFmt           string            `json:"pix_fmt"`
	RFrameRate       string            `json:"r_frame_rate"`
	BitRate          flexString        `json:"bit_rate"`
	BitsPerRawSample flexString        `json:"bits_per_raw_sample"`
	BitsPerSample    int               `json:"bits_per_sample"`
	SampleRate       flexString        `json:"sample_rate"`
	Channels         int               `json:"channels"`
	ChannelLayout    string            `json:"channel_layout"`
	Tags             map[string]string `json:"tags"`
	Disposition      map[string]int    `json:"disposition"`
}

func (o Output) hasPlayableStream() bool {
	if o.Format.FormatName == "" {
		return false
	}
	for _, s := range o.Streams {
		if (s.CodecType == "video" || s.CodecType == "audio") && s.CodecName != "" {
			return true
		}
	}
	return false
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(b)))
	return nil
}

func (f flexString) int64() int64 {
	v, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (f flexString) int() int {
	return int(f.int64())
}

func (f flexString) float() float64 {
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRate turns "24000/1001" into 23.976...; malformed or zero denominators yield 0.
func parseRate(r string) float64 {
	num, den, ok := strings.Cut(r, "/")
	if !ok {
		v, _ := strconv.ParseFloat(r, 64)
		return v
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d <= 0 {
		return 0
	}
	return n / d
}

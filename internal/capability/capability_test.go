// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package capability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type panickyQuerier struct{}

func (panickyQuerier) CanPlayType(mime string) string {
	if mime == MIMEAV1 {
		panic("decoder query object exploded")
	}
	return "maybe"
}

type recordingQuerier struct {
	asked []string
}

func (r *recordingQuerier) CanPlayType(mime string) string {
	r.asked = append(r.asked, mime)
	return ""
}

func TestProbe_Static(t *testing.T) {
	q := NewStaticQuerier(MIMEH264, `video/mp4;  codecs="hvc1.1.6.L93.B0"`, MIMEHLSLegacy)
	got := Probe(q)
	assert.Equal(t, Capabilities{H264: true, HEVC: true, NativeHLS: true}, got)
}

func TestProbe_NilQuerier(t *testing.T) {
	assert.Equal(t, Capabilities{}, Probe(nil))
}

func TestProbe_PanicResolvesFalse(t *testing.T) {
	got := Probe(panickyQuerier{})
	assert.False(t, got.AV1)
	assert.True(t, got.H264)
	assert.True(t, got.NativeHLS)
}

func TestProbe_Deterministic(t *testing.T) {
	q := NewUserAgentQuerier("Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15")
	first := Probe(q)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Probe(q))
	}
}

func TestProbe_AsksEveryQuery(t *testing.T) {
	r := &recordingQuerier{}
	Probe(r)
	assert.ElementsMatch(t, []string{MIMEH264, MIMEHEVCHev1, MIMEHEVCHvc1, MIMEVP9, MIMEAV1, MIMEHLSApple, MIMEHLSLegacy}, r.asked)
}

func TestUserAgentQuerier(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Capabilities
	}{
		{
			name: "safari",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_4) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
			want: Capabilities{H264: true, HEVC: true, NativeHLS: true},
		},
		{
			name: "chrome",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			want: Capabilities{H264: true, VP9: true, AV1: true},
		},
		{
			name: "unknown",
			ua:   "curl/8.5.0",
			want: Capabilities{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Probe(NewUserAgentQuerier(tt.ua)))
		})
	}
}

func TestCapabilities_Decodes(t *testing.T) {
	c := Capabilities{H264: true, HEVC: false, AV1: true}
	assert.True(t, c.Decodes("h264"))
	assert.False(t, c.Decodes("hevc"))
	assert.True(t, c.Decodes("av1"))
	assert.False(t, c.Decodes("mpeg2video"))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package locator

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/media"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		path string
		mode media.ModeID
		want string
	}{
		{"Shows/My Episode #2.mkv", media.ModeOriginal, "/video/Shows/My%20Episode%20%232.mkv"},
		{"Shows/My Episode #2.mkv", media.ModeAdaptive, "/hls/Shows/My%20Episode%20%232.mkv/playlist.m3u8"},
		{"Shows/My Episode #2.mkv", media.ModeLegacy, "/legacy/Shows/My%20Episode%20%232.mkv"},
		{"Shows/My Episode #2.mkv", media.ModeDownload, "/video/Shows/My%20Episode%20%232.mkv"},
		{"Movies/a.mp4", media.ModeID("dash"), "/hls/Movies/a.mp4/playlist.m3u8"},
		{"Film: Teil 1&2?.mp4", media.ModeOriginal, "/video/Film%3A%20Teil%201%262%3F.mp4"},
		{"Über/Ça.mkv", media.ModeOriginal, "/video/%C3%9Cber/%C3%87a.mkv"},
		{"keep/-_.!~*'()", media.ModeDownload, "/video/keep/-_.!~*'()"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Locate(tt.path, tt.mode))
		})
	}
}

func TestLocate_AdaptiveAlwaysEndsWithPlaylist(t *testing.T) {
	for _, p := range []string{"a.mkv", "dir/sub dir/b.mp4", "", "x%y"} {
		assert.True(t, strings.HasSuffix(Locate(p, media.ModeAdaptive), "/playlist.m3u8"), p)
	}
}

func TestEncodePath_SegmentsRoundTrip(t *testing.T) {
	in := "a b/c#d/e%f/g?h"
	encoded := EncodePath(in)
	assert.Equal(t, 4, len(strings.Split(encoded, "/")))

	segments := strings.Split(encoded, "/")
	for i, s := range segments {
		decoded, err := url.PathUnescape(s)
		require.NoError(t, err)
		assert.Equal(t, strings.Split(in, "/")[i], decoded)
	}
}

func TestResolve(t *testing.T) {
	base, err := url.Parse("http://media.local:8080/")
	require.NoError(t, err)

	got, err := Resolve(base, Locate("Shows/My Episode #2.mkv", media.ModeAdaptive))
	require.NoError(t, err)
	assert.Equal(t, "http://media.local:8080/hls/Shows/My%20Episode%20%232.mkv/playlist.m3u8", got)

	_, err = Resolve(nil, "/video/a")
	assert.Error(t, err)
}

func TestEscapeComponent_EscapesSlashes(t *testing.T) {
	assert.Equal(t, "Shows%2FMy%20Episode%20%232.mkv", EscapeComponent("Shows/My Episode #2.mkv"))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/capability"
	"github.com/ManuGH/vodplay/internal/config"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metadata"
	"github.com/ManuGH/vodplay/internal/session"
)

func descriptorFor(codec string) media.Descriptor {
	return media.Descriptor{
		Format:       media.Format{Name: "matroska,webm", Duration: 60},
		VideoStreams: []media.VideoTrack{{CodecName: codec}},
		AudioStreams: []media.AudioTrack{{CodecName: "aac"}},
		Compatibility: media.Compatibility{
			IsHLSCompatible: true,
		},
		PlaybackModes: []media.DeliveryMode{
			{ID: media.ModeOriginal, FormatType: media.FormatOriginal},
			{ID: media.ModeAdaptive, FormatType: media.FormatHLS},
			{ID: media.ModeLegacy, FormatType: media.FormatLegacy},
			{ID: media.ModeDownload, FormatType: media.FormatCustom},
		},
	}
}

// fakeDaemon serves metadata for two items and an HLS rendition of each.
func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	items := map[string]media.Descriptor{
		"Shows/ep 1.mp4":   descriptorFor("h264"),
		"Shows/ep 2.mkv":   descriptorFor("hevc"),
		"Shows/broken.mkv": descriptorFor("hevc"),
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch p := r.URL.Path; {
		case strings.HasPrefix(p, metadata.InfoPrefix):
			d, ok := items[strings.TrimPrefix(p, metadata.InfoPrefix)]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(d)
		case strings.HasPrefix(p, "/hls/Shows/broken.mkv/"):
			http.NotFound(w, r)
		case strings.HasSuffix(p, "/playlist.m3u8"):
			_, _ = fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:4\n#EXTINF:4.0,\nseg0.ts\n#EXTINF:4.0,\nseg1.ts\n#EXT-X-ENDLIST\n")
		case strings.HasSuffix(p, ".ts"):
			_, _ = w.Write(append([]byte{0x47}, make([]byte, 187)...))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeClientConfig(t *testing.T, serverURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vodplay.yaml")
	body := fmt.Sprintf(`server:
  library_root: %s
cache:
  backend: none
store:
  backend: file
  path: %s
client:
  server_url: %s
  reload_interval: 10ms
logging:
  level: error
`, dir, filepath.Join(dir, "prefs.json"), serverURL)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (planOutput, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)

	var out planOutput
	if stdout.Len() > 0 {
		_ = json.Unmarshal(stdout.Bytes(), &out)
	}
	return out, stdout.String(), err
}

func TestNegotiate_DirectCompatible(t *testing.T) {
	cfgPath := writeClientConfig(t, fakeDaemon(t).URL)

	out, _, err := run(t, "negotiate", "Shows/ep 1.mp4", "-c", cfgPath, "--can-play", capability.MIMEH264)
	require.NoError(t, err)
	assert.Equal(t, "original", out.Mode)
	assert.Equal(t, "/video/Shows/ep%201.mp4", out.Locator)
	assert.Equal(t, "direct_compatible", out.Reason)
	assert.True(t, out.Capabilities.H264)
}

func TestNegotiate_UndecodableFallsBackToAdaptive(t *testing.T) {
	cfgPath := writeClientConfig(t, fakeDaemon(t).URL)

	out, _, err := run(t, "negotiate", "Shows/ep 2.mkv", "-c", cfgPath, "--can-play", capability.MIMEH264)
	require.NoError(t, err)
	assert.Equal(t, "hls", out.Mode)
	assert.Equal(t, "/hls/Shows/ep%202.mkv/playlist.m3u8", out.Locator)
	assert.False(t, out.Fallback)
}

func TestNegotiate_MetadataUnavailable(t *testing.T) {
	cfgPath := writeClientConfig(t, fakeDaemon(t).URL)

	out, _, err := run(t, "negotiate", "missing.mkv", "-c", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "hls", out.Mode)
	assert.True(t, out.Fallback)
}

func TestPreference_SetGetAndNegotiate(t *testing.T) {
	cfgPath := writeClientConfig(t, fakeDaemon(t).URL)

	_, raw, err := run(t, "preference", "set", "legacy", "-c", cfgPath, "--profile", "kids")
	require.NoError(t, err)
	assert.Contains(t, raw, `"preferredMode": "legacy"`)

	_, raw, err = run(t, "preference", "get", "-c", cfgPath, "--profile", "kids")
	require.NoError(t, err)
	assert.Contains(t, raw, `"autoSelect": false`)

	out, _, err := run(t, "negotiate", "Shows/ep 1.mp4", "-c", cfgPath, "--profile", "kids")
	require.NoError(t, err)
	assert.Equal(t, "legacy", out.Mode)
	assert.Equal(t, "/legacy/Shows/ep%201.mp4", out.Locator)

	// Other profiles are unaffected.
	_, raw, err = run(t, "preference", "get", "-c", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, raw, `"autoSelect": true`)

	_, _, err = run(t, "preference", "set", "betamax", "-c", cfgPath)
	assert.Error(t, err)
}

func TestPlay_Direct(t *testing.T) {
	srv := fakeDaemon(t)
	cfgPath := writeClientConfig(t, srv.URL)

	out, _, err := run(t, "play", "Shows/ep 1.mp4", "-c", cfgPath, "--can-play", capability.MIMEH264)
	require.NoError(t, err)
	assert.Equal(t, "original", out.Mode)
	assert.Equal(t, "playing", out.State)
	assert.NotEmpty(t, out.Session)
	assert.Empty(t, out.Error)
}

func TestPlay_AdaptiveThroughEngine(t *testing.T) {
	srv := fakeDaemon(t)
	cfgPath := writeClientConfig(t, srv.URL)

	out, _, err := run(t, "play", "Shows/ep 2.mkv", "-c", cfgPath, "--can-play", capability.MIMEH264, "--timeout", "5s")
	require.NoError(t, err)
	assert.Equal(t, "hls", out.Mode)
	assert.Equal(t, "playing", out.State)
}

func TestPlay_FailedAdaptiveSessionJoinsEngine(t *testing.T) {
	srv := fakeDaemon(t)
	cfg, err := config.NewLoader(writeClientConfig(t, srv.URL), "test").Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := newClient(ctx, cfg)
	require.NoError(t, err)
	defer c.Close()
	c.querier = capability.NewStaticQuerier(capability.MIMEH264)

	var stdout bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&stdout)
	cmd.SetContext(ctx)

	err = runPlay(cmd, c, "Shows/broken.mkv", playOptions{timeout: 5 * time.Second})
	require.ErrorIs(t, err, session.ErrRecoveryExhausted)

	var out planOutput
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.Equal(t, "hls", out.Mode)
	assert.Equal(t, "failed", out.State)

	c.engines.mu.Lock()
	defer c.engines.mu.Unlock()
	assert.Equal(t, 1, c.engines.joined, "the failed session's engine must be joined")
	assert.Empty(t, c.engines.engines)
}

func TestCapabilities(t *testing.T) {
	cfgPath := writeClientConfig(t, "http://localhost:1")

	_, raw, err := run(t, "capabilities", "-c", cfgPath, "--user-agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15")
	require.NoError(t, err)
	var caps capability.Capabilities
	require.NoError(t, json.Unmarshal([]byte(raw), &caps))
	assert.True(t, caps.NativeHLS)
}

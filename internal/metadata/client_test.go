// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/cache"
	"github.com/ManuGH/vodplay/internal/media"
)

const infoDoc = `{
  "format": {"name": "mov,mp4,m4a,3gp,3g2,mj2", "duration": 60, "size": 1000, "bitrate": 1000},
  "video_streams": [{"codec_name": "h264", "width": 1280, "height": 720}],
  "audio_streams": [{"codec_name": "aac", "channels": 2}],
  "subtitle_streams": [],
  "compatibility": {"is_hls_compatible": true, "needs_video_transcode": false, "needs_audio_transcode": false, "is_legacy_compatible": true},
  "playback_modes": [
    {"id": "original", "name": "Original Quality", "requires_transcoding": false, "format_type": "original"},
    {"id": "hls", "name": "HLS Streaming", "requires_transcoding": true, "format_type": "hls"}
  ]
}`

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client())}, opts...)
	c, err := NewClient(srv.URL, opts...)
	require.NoError(t, err)
	return c
}

func TestInfoPath_EscapesWholePath(t *testing.T) {
	assert.Equal(t, "/api/video/info/Shows%2FS01%2FE01%20(Pilot).mkv", InfoPath("Shows/S01/E01 (Pilot).mkv"))
}

func TestNewClient_RejectsBadBase(t *testing.T) {
	for _, base := range []string{"", "ftp://example", "http://", "::bad"} {
		_, err := NewClient(base)
		assert.Error(t, err, base)
	}
}

func TestFetch_Success(t *testing.T) {
	var gotRawPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRawPath = r.URL.EscapedPath()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(infoDoc))
	}))

	d, err := c.Fetch(context.Background(), "Movies/Big Buck.mp4")
	require.NoError(t, err)
	assert.Equal(t, "h264", d.PrimaryVideoCodec())
	assert.Equal(t, []media.ModeID{media.ModeOriginal, media.ModeAdaptive}, d.SupportedModes().Ordered())
	assert.Equal(t, "/api/video/info/Movies%2FBig%20Buck.mp4", gotRawPath)
}

func TestFetch_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"not found", func(w http.ResponseWriter, _ *http.Request) {
			http.NotFound(w, nil)
		}},
		{"not json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}},
		{"missing modes", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"format": {}}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Fetch(context.Background(), "a.mkv")
			require.ErrorIs(t, err, ErrMetadataUnavailable)
		})
	}
}

func TestFetch_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, WithHTTPClient(&http.Client{Timeout: time.Second}))
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "a.mkv")
	require.ErrorIs(t, err, ErrMetadataUnavailable)
}

func TestFetch_CachesDocuments(t *testing.T) {
	var hits atomic.Int32
	mc := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = mc.Close() })

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(infoDoc))
	}), WithCache(mc, time.Minute))

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), "a.mkv")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_DoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	mc := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = mc.Close() })

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(infoDoc))
	}), WithCache(mc, time.Minute))

	_, err := c.Fetch(context.Background(), "a.mkv")
	require.ErrorIs(t, err, ErrMetadataUnavailable)
	_, err = c.Fetch(context.Background(), "a.mkv")
	require.NoError(t, err)
}

func TestFetch_CoalescesConcurrentRequests(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	mc := cache.NewMemoryCache(0)
	t.Cleanup(func() { _ = mc.Close() })
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(infoDoc))
	}), WithCache(mc, time.Minute))

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), "same.mkv")
			errs <- err
		}()
	}

	require.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	// Late callers either join the in-flight request or hit the cache.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetch_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(infoDoc))
	}))
	// Registered after the server so it runs before srv.Close.
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, "slow.mkv")
	require.ErrorIs(t, err, ErrMetadataUnavailable)
}

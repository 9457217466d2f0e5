// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/media"
)

const hlsLoc = "/hls/a.mkv/playlist.m3u8"

func openAdaptive(t *testing.T, opts ...Option) (*Controller, *Session, *fakeEngine, *fakeSurface, *int) {
	t.Helper()
	eng := &fakeEngine{}
	created := 0
	c := NewController(append([]Option{WithEngineFactory(engineFactory(eng, &created))}, opts...)...)
	surf := newSurface("video-1")
	s, err := c.Open(context.Background(), surf, hlsLoc, media.ModeAdaptive)
	require.NoError(t, err)
	return c, s, eng, surf, &created
}

func TestOpen_DirectModes(t *testing.T) {
	for _, mode := range []media.ModeID{media.ModeOriginal, media.ModeLegacy, media.ModeDownload} {
		t.Run(string(mode), func(t *testing.T) {
			created := 0
			c := NewController(WithEngineFactory(engineFactory(&fakeEngine{}, &created)))
			surf := newSurface("v")

			s, err := c.Open(context.Background(), surf, "/video/a.mp4", mode)
			require.NoError(t, err)

			assert.Equal(t, StatePlaying, s.State())
			assert.Nil(t, s.Engine())
			assert.Equal(t, 0, created)
			src, sets, _, plays := surf.snapshot()
			assert.Equal(t, "/video/a.mp4", src)
			assert.Equal(t, 1, sets)
			assert.Equal(t, 0, plays, "playback must not autostart")
		})
	}
}

func TestOpen_AdaptiveWithEngine(t *testing.T) {
	_, s, eng, surf, created := openAdaptive(t)

	assert.Equal(t, StateAttaching, s.State())
	assert.Equal(t, 1, *created)
	assert.Equal(t, []string{hlsLoc}, eng.loaded)
	assert.Same(t, s, eng.listener)

	s.OnManifestParsed()
	assert.Equal(t, StatePlaying, s.State())
	_, sets, _, plays := surf.snapshot()
	assert.Equal(t, 0, sets, "engine owns the surface source")
	assert.Equal(t, 0, plays, "playback must not autostart")
}

func TestOpen_AdaptiveNative(t *testing.T) {
	c := NewController()
	surf := newSurface("safari")
	surf.nativeHLS = true

	s, err := c.Open(context.Background(), surf, hlsLoc, media.ModeAdaptive)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, s.State())
	assert.Nil(t, s.Engine())
	src, _, _, plays := surf.snapshot()
	assert.Equal(t, hlsLoc, src)
	assert.Equal(t, 0, plays)
}

func TestOpen_AdaptiveUnsupportedEnvironment(t *testing.T) {
	c := NewController()
	surf := newSurface("plain")

	_, err := c.Open(context.Background(), surf, hlsLoc, media.ModeAdaptive)
	assert.ErrorIs(t, err, ErrUnsupportedEnvironment)
	_, bound := c.Active("plain")
	assert.False(t, bound)

	// Progressive modes still work without an engine.
	s, err := c.Open(context.Background(), surf, "/video/a.mp4", media.ModeOriginal)
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, s.State())
}

func TestOpen_SurfaceBusy(t *testing.T) {
	c, s, _, surf, _ := openAdaptive(t)

	_, err := c.Open(context.Background(), surf, "/video/b.mp4", media.ModeOriginal)
	assert.ErrorIs(t, err, ErrSurfaceBusy)

	s.Close()
	s2, err := c.Open(context.Background(), surf, "/video/b.mp4", media.ModeOriginal)
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), s2.ID())
}

func TestOpen_FailedSessionStillBindsSurface(t *testing.T) {
	c, s, _, surf, _ := openAdaptive(t)
	s.OnError(EngineError{Category: CategoryMux, Fatal: true, Detail: "bad container"})
	require.Equal(t, StateFailed, s.State())

	_, err := c.Open(context.Background(), surf, hlsLoc, media.ModeAdaptive)
	assert.ErrorIs(t, err, ErrSurfaceBusy)
}

func TestOpen_ConcurrentOnlyOneBinds(t *testing.T) {
	c := NewController()
	surf := newSurface("shared")

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, busy := 0, 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Open(context.Background(), surf, "/video/a.mp4", media.ModeOriginal)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ErrSurfaceBusy) {
				busy++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, busy)
}

func TestOpen_SetSourceFailureReleasesSurface(t *testing.T) {
	c := NewController()
	surf := newSurface("broken")
	surf.setErr = errors.New("element gone")

	_, err := c.Open(context.Background(), surf, "/video/a.mp4", media.ModeOriginal)
	require.Error(t, err)
	_, bound := c.Active("broken")
	assert.False(t, bound)
}

func TestOpen_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewController().Open(ctx, newSurface("x"), "/video/a", media.ModeOriginal)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNetworkRecovery_ReusesEngine(t *testing.T) {
	_, s, eng, _, created := openAdaptive(t)
	s.OnManifestParsed()

	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true, Detail: "segment 404"})

	startLoads, mediaRecovs, destroys := eng.counts()
	assert.Equal(t, 1, startLoads)
	assert.Equal(t, 0, mediaRecovs)
	assert.Equal(t, 0, destroys)
	assert.Equal(t, 1, *created, "engine must be reused across recovery")
	assert.Same(t, Engine(eng), s.Engine())
	assert.Equal(t, StatePlaying, s.State())
}

func TestNetworkRecovery_BeforeManifestReattaches(t *testing.T) {
	_, s, _, _, _ := openAdaptive(t)

	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true, Detail: "manifest timeout"})
	assert.Equal(t, StateAttaching, s.State())

	s.OnManifestParsed()
	assert.Equal(t, StatePlaying, s.State())
}

func TestNetworkRecovery_Exhausted(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t)
	s.OnManifestParsed()

	for i := 0; i < DefaultNetworkRetries; i++ {
		s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
		require.Equal(t, StatePlaying, s.State(), "attempt %d", i+1)
	}
	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})

	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrRecoveryExhausted)
	startLoads, _, destroys := eng.counts()
	assert.Equal(t, DefaultNetworkRetries, startLoads)
	assert.Equal(t, 1, destroys)
	assert.Nil(t, s.Engine())
}

func TestFragmentLoaded_ResetsBudget(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t, WithNetworkRetries(1))
	s.OnManifestParsed()

	for i := 0; i < 5; i++ {
		s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
		require.Equal(t, StatePlaying, s.State())
		s.OnFragmentLoaded()
	}
	startLoads, _, _ := eng.counts()
	assert.Equal(t, 5, startLoads)
}

func TestMediaRecovery(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t)
	s.OnManifestParsed()

	for i := 0; i < DefaultMediaRetries; i++ {
		s.OnError(EngineError{Category: CategoryMedia, Fatal: true, Detail: "decode"})
		require.Equal(t, StatePlaying, s.State())
	}
	_, mediaRecovs, _ := eng.counts()
	assert.Equal(t, DefaultMediaRetries, mediaRecovs)

	s.OnError(EngineError{Category: CategoryMedia, Fatal: true, Detail: "decode"})
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrRecoveryExhausted)
}

func TestOtherFatalErrors_FailImmediately(t *testing.T) {
	for _, cat := range []ErrorCategory{CategoryMux, CategoryKey, CategoryOther} {
		t.Run(string(cat), func(t *testing.T) {
			_, s, eng, _, _ := openAdaptive(t)
			s.OnManifestParsed()

			s.OnError(EngineError{Category: cat, Fatal: true, Detail: "boom"})

			assert.Equal(t, StateFailed, s.State())
			assert.ErrorIs(t, s.Err(), ErrFatalEngine)
			startLoads, mediaRecovs, destroys := eng.counts()
			assert.Equal(t, 0, startLoads)
			assert.Equal(t, 0, mediaRecovs)
			assert.Equal(t, 1, destroys)
		})
	}
}

func TestNonFatalErrors_AreIgnored(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t)
	s.OnManifestParsed()

	s.OnError(EngineError{Category: CategoryNetwork, Fatal: false, Detail: "level load retry"})
	s.OnError(EngineError{Category: CategoryMux, Fatal: false})

	assert.Equal(t, StatePlaying, s.State())
	startLoads, _, destroys := eng.counts()
	assert.Equal(t, 0, startLoads)
	assert.Equal(t, 0, destroys)
}

func TestRecoveryActionFailure_Fails(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t)
	eng.startErr = errors.New("engine destroyed")
	s.OnManifestParsed()

	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
	assert.Equal(t, StateFailed, s.State())
	assert.ErrorIs(t, s.Err(), ErrFatalEngine)
}

func TestFatalErrorDuringRecovery_FailsSession(t *testing.T) {
	for _, cat := range []ErrorCategory{CategoryOther, CategoryMux, CategoryNetwork} {
		t.Run(string(cat), func(t *testing.T) {
			_, s, eng, _, _ := openAdaptive(t)
			s.OnManifestParsed()
			eng.onStartLoad = func() {
				assert.Equal(t, StateRecovering, s.State())
				s.OnError(EngineError{Category: cat, Fatal: true, Detail: "reported mid-recovery"})
			}

			s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})

			assert.Equal(t, StateFailed, s.State())
			assert.ErrorIs(t, s.Err(), ErrFatalEngine)
			assert.Nil(t, s.Engine())
			startLoads, _, destroys := eng.counts()
			assert.Equal(t, 1, startLoads)
			assert.Equal(t, 1, destroys)
		})
	}
}

func TestNonFatalErrorDuringRecovery_Recovers(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t)
	s.OnManifestParsed()
	eng.onStartLoad = func() {
		s.OnError(EngineError{Category: CategoryNetwork, Fatal: false})
	}

	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
	assert.Equal(t, StatePlaying, s.State())
	assert.NoError(t, s.Err())

	// A later recovery starts with a clean slate.
	eng.onStartLoad = nil
	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
	assert.Equal(t, StatePlaying, s.State())
}

func TestCloseDuringRecovery_DiscardsResult(t *testing.T) {
	_, s, eng, surf, _ := openAdaptive(t)
	s.OnManifestParsed()

	release := make(chan struct{})
	entered := make(chan struct{})
	eng.onStartLoad = func() {
		close(entered)
		<-release
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
	}()

	<-entered
	s.Close()
	close(release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recovery did not return")
	}

	assert.Equal(t, StateClosed, s.State())
	_, _, destroys := eng.counts()
	assert.Equal(t, 1, destroys)
	_, _, clears, _ := surf.snapshot()
	assert.Equal(t, 1, clears)
}

func TestClose_IdempotentFromAnyState(t *testing.T) {
	tests := []struct {
		name  string
		drive func(s *Session)
	}{
		{"attaching", func(*Session) {}},
		{"playing", func(s *Session) { s.OnManifestParsed() }},
		{"failed", func(s *Session) { s.OnError(EngineError{Category: CategoryKey, Fatal: true}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s, eng, surf, _ := openAdaptive(t)
			tt.drive(s)

			s.Close()
			s.Close()

			assert.Equal(t, StateClosed, s.State())
			_, _, destroys := eng.counts()
			assert.Equal(t, 1, destroys)
			_, _, clears, _ := surf.snapshot()
			assert.Equal(t, 1, clears)
			_, bound := c.Active(surf.ID())
			assert.False(t, bound)

			select {
			case <-s.Done():
			default:
				t.Fatal("session context not cancelled")
			}
		})
	}
}

func TestEventsAfterClose_AreIgnored(t *testing.T) {
	_, s, eng, _, _ := openAdaptive(t)
	s.Close()

	s.OnManifestParsed()
	s.OnFragmentLoaded()
	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})

	assert.Equal(t, StateClosed, s.State())
	assert.NoError(t, s.Err())
	startLoads, _, _ := eng.counts()
	assert.Equal(t, 0, startLoads)
}

func TestPlayPause_OnlyWhilePlaying(t *testing.T) {
	_, s, _, surf, _ := openAdaptive(t)

	assert.ErrorIs(t, s.Play(), ErrNotPlaying)
	s.OnManifestParsed()
	require.NoError(t, s.Play())
	require.NoError(t, s.Pause())
	_, _, _, plays := surf.snapshot()
	assert.Equal(t, 1, plays)

	s.Close()
	assert.ErrorIs(t, s.Pause(), ErrNotPlaying)
}

func TestOnStateChange_ReportsTransitions(t *testing.T) {
	var mu sync.Mutex
	var got []string
	_, s, _, _, _ := openAdaptive(t, WithOnStateChange(func(_ *Session, from, to State) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(from)+">"+string(to))
	}))

	s.OnManifestParsed()
	s.OnError(EngineError{Category: CategoryNetwork, Fatal: true})
	s.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"idle>attaching",
		"attaching>playing",
		"playing>recovering",
		"recovering>playing",
		"playing>closed",
	}, got)
}

func TestOnStateChange_MayCloseSession(t *testing.T) {
	eng := &fakeEngine{}
	created := 0
	c := NewController(
		WithEngineFactory(engineFactory(eng, &created)),
		WithOnStateChange(func(sess *Session, _, to State) {
			if to == StateFailed {
				sess.Close()
			}
		}),
	)
	s, err := c.Open(context.Background(), newSurface("v"), hlsLoc, media.ModeAdaptive)
	require.NoError(t, err)

	s.OnError(EngineError{Category: CategoryOther, Fatal: true})
	assert.Equal(t, StateClosed, s.State())
}

func TestDetectEnvironment(t *testing.T) {
	native := newSurface("n")
	native.nativeHLS = true
	factory := engineFactory(&fakeEngine{}, new(int))

	assert.Equal(t, EnvSoftwareEngine, DetectEnvironment(factory, native))
	assert.Equal(t, EnvNativePlatform, DetectEnvironment(nil, native))
	assert.Equal(t, EnvUnavailable, DetectEnvironment(nil, newSurface("p")))
	assert.Equal(t, EnvUnavailable, DetectEnvironment(nil, nil))
	assert.Equal(t, "native_platform", EnvNativePlatform.String())
}

func TestEngineError_Error(t *testing.T) {
	assert.Equal(t, "fatal network error: 404", EngineError{Category: CategoryNetwork, Fatal: true, Detail: "404"}.Error())
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package hlsengine is a headless software adaptive-stream engine. It loads
// and validates HLS playlists and segments over HTTP and reports progress and
// categorized failures to a session.Listener, the way a browser engine would.
package hlsengine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/vodplay/internal/core/urlutil"
	xglog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/platform/httpx"
	"github.com/ManuGH/vodplay/internal/session"
)

// ErrDestroyed is returned by recovery calls after Destroy.
var ErrDestroyed = errors.New("engine destroyed")

const (
	maxPlaylistBytes   = 4 << 20
	segmentProbeLength = 188
	// maxIdleRefreshes bounds live playlist reloads that bring no new segment.
	maxIdleRefreshes = 3
)

// Options tunes the engine. Zero values select defaults.
type Options struct {
	// Client performs all fetches. Defaults to a retrying client.
	Client *http.Client
	// BaseURL resolves server-relative locators.
	BaseURL *url.URL
	// MaxBufferSegments is how many segments are fetched ahead after the
	// manifest (informational buffer target, like maxBufferLength).
	MaxBufferSegments int
	// ReloadInterval paces StartLoad/RecoverMediaError reloads and live
	// playlist refreshes.
	ReloadInterval time.Duration
	// FetchRetries is the transport-level retry count per request.
	FetchRetries int
	Logger       *zerolog.Logger
}

func (o Options) withDefaults() Options {
	if o.FetchRetries == 0 {
		o.FetchRetries = 2
	}
	if o.Client == nil {
		o.Client = httpx.NewRetryableClient(15*time.Second, o.FetchRetries)
	}
	if o.MaxBufferSegments <= 0 {
		o.MaxBufferSegments = 3
	}
	if o.ReloadInterval == 0 {
		o.ReloadInterval = 500 * time.Millisecond
	}
	return o
}

// Factory returns a session.EngineFactory creating engines with opts.
func Factory(opts Options) session.EngineFactory {
	return func(surface session.Surface, l session.Listener) (session.Engine, error) {
		return New(opts, surface.ID(), l), nil
	}
}

// Engine loads one stream. Events are delivered from engine goroutines and
// may arrive concurrently with calls into the engine.
type Engine struct {
	opts     Options
	listener session.Listener
	limiter  *rate.Limiter
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	loadMu sync.Mutex // serializes loader goroutines

	mu          sync.Mutex
	destroyed   bool
	manifestURL string
	media       *MediaPlaylist
	mediaURL    string
	nextSegment int
}

// New creates an engine reporting to l.
func New(opts Options, surfaceID string, l session.Listener) *Engine {
	opts = opts.withDefaults()
	limit := rate.Every(opts.ReloadInterval)
	if opts.ReloadInterval < 0 {
		limit = rate.Inf
	}

	logger := xglog.WithComponent("hlsengine")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opts:     opts,
		listener: l,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger.With().Str(xglog.FieldSurface, surfaceID).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Load starts loading locator. It returns immediately.
func (e *Engine) Load(locator string) {
	abs := locator
	if e.opts.BaseURL != nil {
		resolved, err := urlutil.Resolve(e.opts.BaseURL.String(), locator)
		if err != nil {
			e.spawn(func(context.Context) {
				e.emitError(session.CategoryNetwork, true, fmt.Sprintf("bad locator: %v", err))
			})
			return
		}
		abs = resolved
	}

	e.mu.Lock()
	e.manifestURL = abs
	e.media = nil
	e.nextSegment = 0
	e.mu.Unlock()

	e.logger.Debug().Str(xglog.FieldLocator, abs).Msg("loading manifest")
	e.spawn(e.run)
}

// StartLoad resumes loading after a network failure: the manifest is
// reloaded if it never arrived, otherwise segment loading continues at the
// failed segment. Reloads are paced.
func (e *Engine) StartLoad() error {
	if !e.spawn(e.pacedRun) {
		return ErrDestroyed
	}
	return nil
}

// RecoverMediaError retries the segment that failed to parse.
func (e *Engine) RecoverMediaError() error {
	if !e.spawn(e.pacedRun) {
		return ErrDestroyed
	}
	return nil
}

// Destroy cancels all in-flight work. It does not block, so it is safe to
// call from a listener callback; use Wait to join the engine goroutines.
func (e *Engine) Destroy() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return
	}
	e.destroyed = true
	e.cancel()
}

// Wait blocks until every engine goroutine has exited.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) spawn(fn func(ctx context.Context)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.loadMu.Lock()
		defer e.loadMu.Unlock()
		if e.ctx.Err() != nil {
			return
		}
		fn(e.ctx)
	}()
	return true
}

func (e *Engine) pacedRun(ctx context.Context) {
	if err := e.limiter.Wait(ctx); err != nil {
		return
	}
	e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	e.mu.Lock()
	haveManifest := e.media != nil
	e.mu.Unlock()

	if !haveManifest {
		if !e.loadManifest(ctx) {
			return
		}
	}
	e.loadSegments(ctx)
}

func (e *Engine) loadManifest(ctx context.Context) bool {
	e.mu.Lock()
	manifestURL := e.manifestURL
	e.mu.Unlock()

	body, err := e.fetch(ctx, manifestURL, maxPlaylistBytes)
	if err != nil {
		e.reportFetchError(ctx, "manifest", err)
		return false
	}

	mediaURL := manifestURL
	if IsMaster(string(body)) {
		variants, err := ParseMaster(string(body))
		if err != nil {
			e.emitError(session.CategoryNetwork, true, fmt.Sprintf("manifest parsing: %v", err))
			return false
		}
		mediaURL, err = urlutil.Resolve(manifestURL, variants[0].URI)
		if err != nil {
			e.emitError(session.CategoryNetwork, true, fmt.Sprintf("variant url: %v", err))
			return false
		}
		body, err = e.fetch(ctx, mediaURL, maxPlaylistBytes)
		if err != nil {
			e.reportFetchError(ctx, "level", err)
			return false
		}
	}

	pl, err := ParseMedia(string(body))
	if err != nil {
		e.emitError(session.CategoryNetwork, true, fmt.Sprintf("manifest parsing: %v", err))
		return false
	}

	e.mu.Lock()
	e.media = pl
	e.mediaURL = mediaURL
	e.nextSegment = 0
	e.mu.Unlock()

	e.logger.Debug().
		Int("segments", len(pl.Segments)).
		Dur("duration", pl.TotalDuration).
		Bool("vod", pl.IsVOD).
		Msg("manifest parsed")
	e.emit(func(l session.Listener) { l.OnManifestParsed() })
	return true
}

func (e *Engine) loadSegments(ctx context.Context) {
	idle := 0
	for loaded := 0; loaded < e.opts.MaxBufferSegments; {
		e.mu.Lock()
		pl, mediaURL, idx := e.media, e.mediaURL, e.nextSegment
		e.mu.Unlock()
		if pl == nil {
			return
		}
		if idx >= len(pl.Segments) {
			if pl.IsVOD || idle >= maxIdleRefreshes {
				return
			}
			grew, ok := e.refreshLive(ctx)
			if !ok {
				return
			}
			if !grew {
				idle++
			}
			continue
		}
		idle = 0

		segURL, err := urlutil.Resolve(mediaURL, pl.Segments[idx].URI)
		if err != nil {
			e.emitError(session.CategoryNetwork, true, fmt.Sprintf("segment url: %v", err))
			return
		}
		head, err := e.fetchSegment(ctx, segURL)
		if err != nil {
			e.reportFetchError(ctx, "fragment", err)
			return
		}
		if !recognizedContainer(head) {
			e.emitError(session.CategoryMedia, true, fmt.Sprintf("fragment parsing: unrecognized container in segment %d", idx))
			return
		}

		e.mu.Lock()
		e.nextSegment = idx + 1
		e.mu.Unlock()
		loaded++
		e.emit(func(l session.Listener) { l.OnFragmentLoaded() })
	}
}

// refreshLive reloads a live media playlist, paced by the reload limiter.
// The consumed position is carried over by media sequence number. It reports
// whether unconsumed segments appeared, and ok=false when loading must stop.
func (e *Engine) refreshLive(ctx context.Context) (grew, ok bool) {
	if err := e.limiter.Wait(ctx); err != nil {
		return false, false
	}

	e.mu.Lock()
	old, mediaURL, idx := e.media, e.mediaURL, e.nextSegment
	e.mu.Unlock()

	body, err := e.fetch(ctx, mediaURL, maxPlaylistBytes)
	if err != nil {
		e.reportFetchError(ctx, "level", err)
		return false, false
	}
	pl, err := ParseMedia(string(body))
	if err != nil {
		e.emitError(session.CategoryNetwork, true, fmt.Sprintf("level parsing: %v", err))
		return false, false
	}

	// Segments that slid out of the window are skipped.
	next := int(old.MediaSequence + int64(idx) - pl.MediaSequence)
	next = max(0, min(next, len(pl.Segments)))

	e.mu.Lock()
	e.media = pl
	e.nextSegment = next
	e.mu.Unlock()

	e.logger.Debug().
		Int64("media_sequence", pl.MediaSequence).
		Int("segments", len(pl.Segments)).
		Int("next", next).
		Bool("vod", pl.IsVOD).
		Msg("live playlist refreshed")
	return next < len(pl.Segments), true
}

type statusError struct {
	code int
}

func (s statusError) Error() string { return fmt.Sprintf("HTTP %d", s.code) }

func (e *Engine) fetch(ctx context.Context, target string, limit int64) ([]byte, error) {
	resp, err := e.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}

// fetchSegment downloads a segment and returns its leading bytes.
func (e *Engine) fetchSegment(ctx context.Context, target string) ([]byte, error) {
	resp, err := e.get(ctx, target)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var head bytes.Buffer
	if _, err := io.CopyN(&head, resp.Body, segmentProbeLength); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, err
	}
	return head.Bytes(), nil
}

func (e *Engine) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.opts.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, statusError{code: resp.StatusCode}
	}
	return resp, nil
}

func (e *Engine) reportFetchError(ctx context.Context, what string, err error) {
	if ctx.Err() != nil {
		return
	}
	e.emitError(session.CategoryNetwork, true, fmt.Sprintf("%s load: %v", what, err))
}

func (e *Engine) emitError(cat session.ErrorCategory, fatal bool, detail string) {
	e.logger.Debug().Str(xglog.FieldCategory, string(cat)).Bool("fatal", fatal).Msg(detail)
	ee := session.EngineError{Category: cat, Fatal: fatal, Detail: detail}
	e.emit(func(l session.Listener) { l.OnError(ee) })
}

// emit delivers an event unless the engine was destroyed.
func (e *Engine) emit(fn func(session.Listener)) {
	if e.ctx.Err() != nil || e.listener == nil {
		return
	}
	fn(e.listener)
}

// recognizedContainer sniffs the segment head for MPEG-TS, ISO BMFF, ID3
// tagged packed audio or ADTS.
func recognizedContainer(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	if head[0] == 0x47 {
		return true
	}
	if len(head) >= 3 && string(head[:3]) == "ID3" {
		return true
	}
	if len(head) >= 2 && head[0] == 0xFF && head[1]&0xF0 == 0xF0 {
		return true
	}
	if len(head) >= 8 {
		switch string(head[4:8]) {
		case "ftyp", "styp", "moof", "moov", "sidx":
			return true
		}
	}
	return false
}

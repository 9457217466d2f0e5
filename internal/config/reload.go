// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vodplay/internal/log"
)

const defaultDebounce = 500 * time.Millisecond

// Holder holds the current configuration and reloads it atomically: a new
// configuration is applied only if it loads and validates.
type Holder struct {
	mu      sync.RWMutex
	current Config
	loader  *Loader
	logger  zerolog.Logger

	debounce time.Duration
	watcher  *fsnotify.Watcher
	wg       sync.WaitGroup

	listenersMu sync.RWMutex
	listeners   []chan<- Config
}

// NewHolder creates a holder with initial as the current configuration.
func NewHolder(initial Config, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: defaultDebounce,
	}
}

// Get returns the current configuration.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload loads the file again. On failure the old configuration stays.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("new configuration rejected")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	old := h.current
	h.current = next
	h.mu.Unlock()

	h.logChanges(old, next)
	h.notifyListeners(next)
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_success").Msg("configuration reloaded")
	return nil
}

// StartWatcher reloads on file changes until ctx is done. The directory is
// watched so editors that replace the file by rename are seen too. Without
// a config file it is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().Str(xglog.FieldEvent, "config.watcher_disabled").Msg("no config file, watcher disabled")
		return nil
	}
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().Str(xglog.FieldEvent, "config.watcher_started").Str(xglog.FieldPath, path).Msg("watching config file")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.watchLoop(ctx, watcher, path)
	}()
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	timer := time.NewTimer(h.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				h.logger.Debug().Str(xglog.FieldEvent, "config.file_changed").Str("op", ev.Op.String()).Msg("config file changed")
				timer.Reset(h.debounce)
			}

		case <-timer.C:
			if err := h.Reload(ctx); err != nil {
				h.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.auto_reload_failed").Msg("automatic reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Wait blocks until the watcher goroutine has exited.
func (h *Holder) Wait() { h.wg.Wait() }

// RegisterListener receives every successfully reloaded configuration.
// Sends never block; a full channel misses the update.
func (h *Holder) RegisterListener(ch chan<- Config) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, ch)
}

func (h *Holder) notifyListeners(cfg Config) {
	h.listenersMu.RLock()
	defer h.listenersMu.RUnlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(xglog.FieldEvent, "config.listener_skip").Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, next Config) {
	if old.Logging.Level != next.Logging.Level {
		h.logger.Info().Str("old", old.Logging.Level).Str("new", next.Logging.Level).Msg("config changed: logging.level")
	}
	if old.Server.RateLimit != next.Server.RateLimit {
		h.logger.Info().
			Int("old", old.Server.RateLimit.RequestsPerMinute).
			Int("new", next.Server.RateLimit.RequestsPerMinute).
			Bool("enabled", next.Server.RateLimit.Enabled).
			Msg("config changed: server.rate_limit")
	}
	if old.Cache.TTL != next.Cache.TTL {
		h.logger.Info().Dur("old", old.Cache.TTL).Dur("new", next.Cache.TTL).Msg("config changed: cache.ttl")
	}
	if old.Server.ListenAddr != next.Server.ListenAddr || old.Server.LibraryRoot != next.Server.LibraryRoot {
		h.logger.Warn().Msg("server.listen_addr and server.library_root changes take effect after restart")
	}
}

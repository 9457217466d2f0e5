// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/ManuGH/vodplay/internal/cache"
	"github.com/ManuGH/vodplay/internal/capability"
	"github.com/ManuGH/vodplay/internal/config"
	"github.com/ManuGH/vodplay/internal/hlsengine"
	"github.com/ManuGH/vodplay/internal/kv"
	vplog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/metadata"
	"github.com/ManuGH/vodplay/internal/playback"
	"github.com/ManuGH/vodplay/internal/preference"
	"github.com/ManuGH/vodplay/internal/session"
	"github.com/ManuGH/vodplay/internal/telemetry"
)

// client bundles the components of one CLI invocation.
type client struct {
	cfg        config.Config
	store      kv.Store
	cache      cache.Cache
	prefs      *preference.Store
	metadata   *metadata.Client
	negotiator *playback.Negotiator
	querier    capability.TypeQuerier
	tracing    *telemetry.Provider
	engines    engineSet
}

// engineSet remembers every engine a player created so their loader
// goroutines can be joined after the session is closed. A failed session has
// already dropped its engine reference by then.
type engineSet struct {
	mu      sync.Mutex
	engines []interface{ Wait() }
	joined  int
}

func (e *engineSet) track(eng session.Engine) {
	w, ok := eng.(interface{ Wait() })
	if !ok {
		return
	}
	e.mu.Lock()
	e.engines = append(e.engines, w)
	e.mu.Unlock()
}

// wait joins every tracked engine. Engines must be destroyed first.
func (e *engineSet) wait() {
	e.mu.Lock()
	pending := e.engines
	e.engines = nil
	e.mu.Unlock()
	for _, w := range pending {
		w.Wait()
	}
	e.mu.Lock()
	e.joined += len(pending)
	e.mu.Unlock()
}

func openPreferences(cfg config.Config) (kv.Store, *preference.Store, error) {
	store, err := kv.Open(kv.Config{
		Backend:   cfg.Store.Backend,
		Path:      cfg.Store.Path,
		RedisAddr: cfg.Store.Redis.Addr,
		RedisDB:   cfg.Store.Redis.DB,
		RedisPass: cfg.Store.Redis.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open preference store: %w", err)
	}
	return store, preference.New(store, preference.WithScope(cfg.Client.Profile)), nil
}

// querierFor answers capability queries from the configured MIME list, the
// configured User-Agent, or nothing.
func querierFor(cfg config.Config) capability.TypeQuerier {
	switch {
	case len(cfg.Client.Capabilities) > 0:
		return capability.NewStaticQuerier(cfg.Client.Capabilities...)
	case cfg.Client.UserAgent != "":
		return capability.NewUserAgentQuerier(cfg.Client.UserAgent)
	default:
		return capability.NewStaticQuerier()
	}
}

func newClient(ctx context.Context, cfg config.Config) (*client, error) {
	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "vodplay",
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	store, prefs, err := openPreferences(cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	c := &client{cfg: cfg, store: store, prefs: prefs, querier: querierFor(cfg), tracing: tp}

	c.cache, err = cache.Open(cache.Config{
		Backend:         cfg.Cache.Backend,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	}, vplog.WithComponent("cache"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("open cache: %w", err)
	}

	c.metadata, err = metadata.NewClient(cfg.Client.ServerURL,
		metadata.WithTimeout(cfg.Client.MetadataTimeout),
		metadata.WithCache(c.cache, cfg.Cache.TTL),
	)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.negotiator = playback.NewNegotiator(c.metadata, prefs)
	return c, nil
}

// newPlayer builds the session stack. onState receives every transition.
func (c *client) newPlayer(onState session.StateChangeFunc) (*playback.Player, error) {
	base, err := url.Parse(c.cfg.Client.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server URL: %w", err)
	}
	logger := vplog.WithComponent("hlsengine")
	newEngine := hlsengine.Factory(hlsengine.Options{
		BaseURL:           base,
		MaxBufferSegments: c.cfg.Client.MaxBufferSegments,
		ReloadInterval:    c.cfg.Client.ReloadInterval,
		Logger:            &logger,
	})
	factory := func(surface session.Surface, l session.Listener) (session.Engine, error) {
		eng, err := newEngine(surface, l)
		if err != nil {
			return nil, err
		}
		c.engines.track(eng)
		return eng, nil
	}
	ctrl := session.NewController(
		session.WithEngineFactory(factory),
		session.WithNetworkRetries(c.cfg.Client.NetworkRetries),
		session.WithMediaRetries(c.cfg.Client.MediaRetries),
		session.WithOnStateChange(onState),
	)
	return playback.NewPlayer(c.negotiator, ctrl, playback.WithBaseURL(base)), nil
}

func (c *client) Close() {
	if c.cache != nil {
		_ = c.cache.Close()
	}
	if c.store != nil {
		_ = c.store.Close()
	}
	_ = c.tracing.Shutdown(context.Background())
}

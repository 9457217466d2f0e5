// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ManuGH/vodplay/internal/api"
	"github.com/ManuGH/vodplay/internal/api/middleware"
	"github.com/ManuGH/vodplay/internal/cache"
	"github.com/ManuGH/vodplay/internal/config"
	"github.com/ManuGH/vodplay/internal/daemon"
	"github.com/ManuGH/vodplay/internal/health"
	vplog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media/probe"
	"github.com/ManuGH/vodplay/internal/telemetry"
)

const serviceName = "vodplay-daemon"

type closer struct {
	name string
	fn   daemon.ShutdownHook
}

type services struct {
	handler http.Handler
	health  *health.Manager
	closers []closer
}

// buildServices wires the HTTP handler and its dependencies from cfg.
// Closers are returned in acquisition order.
func buildServices(ctx context.Context, cfg config.Config, version string) (*services, error) {
	rt := &services{}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.closers = append(rt.closers, closer{"telemetry", tp.Shutdown})

	c, err := cache.Open(cache.Config{
		Backend:         cfg.Cache.Backend,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
	}, vplog.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	rt.closers = append(rt.closers, closer{"cache", func(context.Context) error { return c.Close() }})

	hm := health.NewManager(version)
	hm.RegisterChecker(health.NewDirChecker("library", cfg.Server.LibraryRoot))
	hm.RegisterChecker(health.NewBinaryChecker("ffprobe", ffprobeBin(cfg)))
	if rc, ok := c.(*cache.RedisCache); ok {
		hm.RegisterChecker(health.CheckFunc{CheckName: "cache", Fn: rc.HealthCheck, Degraded: true})
	}
	rt.health = hm

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = serviceName
	}
	rpm := 0
	if cfg.Server.RateLimit.Enabled {
		rpm = cfg.Server.RateLimit.RequestsPerMinute
	}

	srv, err := api.New(api.Options{
		LibraryRoot: cfg.Server.LibraryRoot,
		Analyzer:    probe.NewProber(ffprobeBin(cfg), cfg.Analyzer.Timeout, vplog.WithComponent("probe")),
		Cache:       c,
		CacheTTL:    cfg.Cache.TTL,
		Health:      hm,
		Stack: middleware.StackConfig{
			AllowedOrigins:        cfg.Server.AllowedOrigins,
			EnableSecurityHeaders: true,
			EnableMetrics:         cfg.Metrics.Enabled,
			TracingService:        tracing,
			EnableLogging:         true,
			RateLimitRPM:          rpm,
		},
		MetricsEnabled: cfg.Metrics.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	rt.handler = srv.Handler()
	return rt, nil
}

func ffprobeBin(cfg config.Config) string {
	if cfg.Analyzer.FFprobeBin != "" {
		return cfg.Analyzer.FFprobeBin
	}
	return "ffprobe"
}

// applyReload returns the hook for hot-reloaded configuration. Only the log
// level applies live; other changes are reported and need a restart.
func applyReload(initial config.Config) daemon.ReloadFunc {
	return func(next config.Config) {
		vplog.Configure(vplog.Config{Level: next.Logging.Level, Service: serviceName})
		logger := vplog.WithComponent("daemon")
		if next.Server.ListenAddr != initial.Server.ListenAddr ||
			next.Server.LibraryRoot != initial.Server.LibraryRoot ||
			next.Cache.Backend != initial.Cache.Backend {
			logger.Warn().Str("event", "config.restart_required").Msg("server settings changed; restart to apply")
		}
		logger.Info().Str("event", "config.applied").Str("log_level", next.Logging.Level).Msg("applied reloaded configuration")
	}
}

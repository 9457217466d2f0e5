// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate reports every problem in cfg at once. The returned error wraps
// ErrInvalidConfig.
func Validate(cfg Config) error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		add("server.listen_addr is required")
	}
	if strings.TrimSpace(cfg.Server.LibraryRoot) == "" {
		add("server.library_root is required")
	}
	for name, d := range map[string]int64{
		"server.read_timeout":     int64(cfg.Server.ReadTimeout),
		"server.write_timeout":    int64(cfg.Server.WriteTimeout),
		"server.idle_timeout":     int64(cfg.Server.IdleTimeout),
		"server.shutdown_timeout": int64(cfg.Server.ShutdownTimeout),
		"analyzer.timeout":        int64(cfg.Analyzer.Timeout),
		"cache.ttl":               int64(cfg.Cache.TTL),
		"client.metadata_timeout": int64(cfg.Client.MetadataTimeout),
	} {
		if d < 0 {
			add("%s must not be negative", name)
		}
	}
	if cfg.Server.RateLimit.Enabled && cfg.Server.RateLimit.RequestsPerMinute <= 0 {
		add("server.rate_limit.requests_per_minute must be positive when rate limiting is enabled")
	}

	switch strings.ToLower(cfg.Cache.Backend) {
	case "memory", "none", "off":
	case "redis":
		if cfg.Cache.Redis.Addr == "" {
			add("cache.redis.addr is required for the redis cache")
		}
	default:
		add("cache.backend %q is not one of memory, redis, none", cfg.Cache.Backend)
	}

	switch strings.ToLower(cfg.Store.Backend) {
	case "memory":
	case "file", "sqlite", "badger":
		if strings.TrimSpace(cfg.Store.Path) == "" {
			add("store.path is required for the %s store", cfg.Store.Backend)
		}
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			add("store.redis.addr is required for the redis store")
		}
	default:
		add("store.backend %q is not one of memory, file, sqlite, redis, badger", cfg.Store.Backend)
	}

	if u, err := url.Parse(cfg.Client.ServerURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("client.server_url %q must be an absolute http(s) URL", MaskURL(cfg.Client.ServerURL))
	}
	if cfg.Client.NetworkRetries < 0 || cfg.Client.MediaRetries < 0 {
		add("client retry budgets must not be negative")
	}
	if cfg.Client.MaxBufferSegments < 0 {
		add("client.max_buffer_segments must not be negative")
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		add("logging.level %q is invalid", cfg.Logging.Level)
	}

	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.Exporter != "grpc" && cfg.Telemetry.Exporter != "http" {
			add("telemetry.exporter %q is not one of grpc, http", cfg.Telemetry.Exporter)
		}
		if cfg.Telemetry.Endpoint == "" {
			add("telemetry.endpoint is required when tracing is enabled")
		}
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		add("telemetry.sampling_rate must be within [0, 1]")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

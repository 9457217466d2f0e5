// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the daemon and client configuration.
// Precedence: defaults, then the YAML file, then VODPLAY_* environment variables.
package config

import (
	"encoding/json"
	"time"
)

// Config is the complete runtime configuration. Both binaries load the same
// structure and read the sections they need.
type Config struct {
	Version   string          `yaml:"-"`
	Server    ServerConfig    `yaml:"server"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Cache     CacheConfig     `yaml:"cache"`
	Store     StoreConfig     `yaml:"store"`
	Client    ClientConfig    `yaml:"client"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig configures the media daemon.
type ServerConfig struct {
	ListenAddr      string          `yaml:"listen_addr"`
	LibraryRoot     string          `yaml:"library_root"`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"` // 0 keeps long file transfers alive
	IdleTimeout     time.Duration   `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
	// AllowedOrigins lists CORS origins; empty allows any.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

// AnalyzerConfig configures ffprobe analysis of library files.
type AnalyzerConfig struct {
	FFprobeBin string        `yaml:"ffprobe_bin"`
	FFmpegBin  string        `yaml:"ffmpeg_bin"`
	Timeout    time.Duration `yaml:"timeout"`

	// FFprobeSource is set by the loader and records how FFprobeBin was chosen.
	FFprobeSource FFprobeSource `yaml:"-" json:"-"`
}

// CacheConfig configures the metadata document cache.
type CacheConfig struct {
	Backend         string        `yaml:"backend"` // memory, redis, none
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	Redis           RedisConfig   `yaml:"redis"`
}

// StoreConfig configures the client-side preference store.
type StoreConfig struct {
	Backend string      `yaml:"backend"` // memory, file, sqlite, redis, badger
	Path    string      `yaml:"path"`
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ClientConfig configures negotiation and the playback session.
type ClientConfig struct {
	ServerURL         string        `yaml:"server_url"`
	Profile           string        `yaml:"profile"` // preference scope
	UserAgent         string        `yaml:"user_agent"`
	Capabilities      []string      `yaml:"capabilities"` // MIME types the device plays
	MetadataTimeout   time.Duration `yaml:"metadata_timeout"`
	NetworkRetries    int           `yaml:"network_retries"`
	MediaRetries      int           `yaml:"media_retries"`
	ReloadInterval    time.Duration `yaml:"reload_interval"`
	MaxBufferSegments int           `yaml:"max_buffer_segments"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"` // grpc, http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Environment  string  `yaml:"environment"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// String renders the configuration with secrets masked.
func (c Config) String() string {
	b, err := json.Marshal(MaskSecrets(c))
	if err != nil {
		return "<config>"
	}
	return string(b)
}

// Redacted returns a copy of c with credentials replaced, for display.
func (c Config) Redacted() Config {
	out := c
	if out.Cache.Redis.Password != "" {
		out.Cache.Redis.Password = "***"
	}
	if out.Store.Redis.Password != "" {
		out.Store.Redis.Password = "***"
	}
	out.Client.ServerURL = MaskURL(out.Client.ServerURL)
	out.Client.Capabilities = append([]string(nil), c.Client.Capabilities...)
	out.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)
	return out
}

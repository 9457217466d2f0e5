// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnknownConfigField marks a config file rejected for a key no field maps to.
var ErrUnknownConfigField = errors.New("unknown config field")

// EnvConfigPath names the config file when no path is given on the command line.
const EnvConfigPath = "VODPLAY_CONFIG"

// Loader loads configuration with precedence ENV > file > defaults.
type Loader struct {
	configPath string
	version    string
}

// NewLoader creates a loader. An empty configPath skips the file stage.
func NewLoader(configPath, version string) *Loader {
	return &Loader{configPath: strings.TrimSpace(configPath), version: version}
}

// Path returns the config file path, or "".
func (l *Loader) Path() string { return l.configPath }

// Load builds and validates the configuration.
func (l *Loader) Load() (Config, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := l.loadFile(l.configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	l.mergeEnv(&cfg)
	probeBin := ResolveFFprobe(cfg.Analyzer.FFprobeBin, cfg.Analyzer.FFmpegBin)
	cfg.Analyzer.FFprobeBin = probeBin.Path
	cfg.Analyzer.FFprobeSource = probeBin.Source
	if cfg.Server.LibraryRoot != "" {
		if abs, err := filepath.Abs(cfg.Server.LibraryRoot); err == nil {
			cfg.Server.LibraryRoot = abs
		}
	}
	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			LibraryRoot:     "media",
			ReadTimeout:     15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       RateLimitConfig{Enabled: true, RequestsPerMinute: 600},
		},
		Analyzer: AnalyzerConfig{Timeout: 30 * time.Second},
		Cache: CacheConfig{
			Backend:         "memory",
			TTL:             10 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Store: StoreConfig{Backend: "file", Path: defaultStorePath()},
		Client: ClientConfig{
			ServerURL:         "http://localhost:8080",
			MetadataTimeout:   10 * time.Second,
			NetworkRetries:    3,
			MediaRetries:      2,
			ReloadInterval:    500 * time.Millisecond,
			MaxBufferSegments: 3,
		},
		Logging: LoggingConfig{Level: "info"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "production",
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "vodplay-preferences.json"
	}
	return filepath.Join(dir, "vodplay", "preferences.json")
}

// loadFile decodes path over cfg. Unknown keys are rejected.
func (l *Loader) loadFile(path string, cfg *Config) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *Config) {
	s := &cfg.Server
	s.ListenAddr = ParseString("VODPLAY_LISTEN_ADDR", s.ListenAddr)
	s.LibraryRoot = ParseString("VODPLAY_LIBRARY_ROOT", s.LibraryRoot)
	s.ReadTimeout = ParseDuration("VODPLAY_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = ParseDuration("VODPLAY_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = ParseDuration("VODPLAY_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = ParseDuration("VODPLAY_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RateLimit.Enabled = ParseBool("VODPLAY_RATE_LIMIT_ENABLED", s.RateLimit.Enabled)
	s.RateLimit.RequestsPerMinute = ParseInt("VODPLAY_RATE_LIMIT_RPM", s.RateLimit.RequestsPerMinute)
	if raw := ParseString("VODPLAY_ALLOWED_ORIGINS", ""); raw != "" {
		s.AllowedOrigins = splitList(raw)
	}

	a := &cfg.Analyzer
	a.FFprobeBin = ParseString("VODPLAY_FFPROBE_BIN", a.FFprobeBin)
	a.FFmpegBin = ParseString("VODPLAY_FFMPEG_BIN", a.FFmpegBin)
	a.Timeout = ParseDuration("VODPLAY_ANALYZE_TIMEOUT", a.Timeout)

	c := &cfg.Cache
	c.Backend = ParseString("VODPLAY_CACHE_BACKEND", c.Backend)
	c.TTL = ParseDuration("VODPLAY_CACHE_TTL", c.TTL)
	c.Redis.Addr = ParseString("VODPLAY_CACHE_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = ParseString("VODPLAY_CACHE_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = ParseInt("VODPLAY_CACHE_REDIS_DB", c.Redis.DB)

	st := &cfg.Store
	st.Backend = ParseString("VODPLAY_STORE_BACKEND", st.Backend)
	st.Path = ParseString("VODPLAY_STORE_PATH", st.Path)
	st.Redis.Addr = ParseString("VODPLAY_STORE_REDIS_ADDR", st.Redis.Addr)
	st.Redis.Password = ParseString("VODPLAY_STORE_REDIS_PASSWORD", st.Redis.Password)
	st.Redis.DB = ParseInt("VODPLAY_STORE_REDIS_DB", st.Redis.DB)

	cl := &cfg.Client
	cl.ServerURL = ParseString("VODPLAY_SERVER_URL", cl.ServerURL)
	cl.Profile = ParseString("VODPLAY_PROFILE", cl.Profile)
	cl.UserAgent = ParseString("VODPLAY_USER_AGENT", cl.UserAgent)
	if raw := ParseString("VODPLAY_CAPABILITIES", ""); raw != "" {
		cl.Capabilities = splitList(raw)
	}
	cl.MetadataTimeout = ParseDuration("VODPLAY_METADATA_TIMEOUT", cl.MetadataTimeout)
	cl.NetworkRetries = ParseInt("VODPLAY_NETWORK_RETRIES", cl.NetworkRetries)
	cl.MediaRetries = ParseInt("VODPLAY_MEDIA_RETRIES", cl.MediaRetries)
	cl.ReloadInterval = ParseDuration("VODPLAY_RELOAD_INTERVAL", cl.ReloadInterval)
	cl.MaxBufferSegments = ParseInt("VODPLAY_MAX_BUFFER_SEGMENTS", cl.MaxBufferSegments)

	cfg.Logging.Level = ParseString("VODPLAY_LOG_LEVEL", cfg.Logging.Level)

	t := &cfg.Telemetry
	t.Enabled = ParseBool("VODPLAY_TRACING_ENABLED", t.Enabled)
	t.Exporter = ParseString("VODPLAY_TRACING_EXPORTER", t.Exporter)
	t.Endpoint = ParseString("VODPLAY_TRACING_ENDPOINT", t.Endpoint)
	t.SamplingRate = ParseFloat("VODPLAY_TRACING_SAMPLING_RATE", t.SamplingRate)
	t.Environment = ParseString("VODPLAY_ENVIRONMENT", t.Environment)

	cfg.Metrics.Enabled = ParseBool("VODPLAY_METRICS_ENABLED", cfg.Metrics.Enabled)
}

// splitList splits a '|'-separated list. MIME types contain both ',' and ';'.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package kv provides the small persistent string key-value stores used for
// client-side state such as the format preference.
package kv

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("kv: unknown backend")

// Store is a scoped string get/set store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Close releases underlying resources.
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend   string // memory, file, sqlite, redis, badger
	Path      string // file/sqlite path or badger directory
	RedisAddr string
	RedisDB   int
	RedisPass string
	Prefix    string // key namespace for shared backends (redis)
}

// Open creates a Store based on the backend configuration.
func Open(cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = "file"
	}

	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("kv: file backend requires a path")
		}
		return NewFileStore(cfg.Path)
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("kv: sqlite backend requires a path")
		}
		return NewSQLiteStore(cfg.Path)
	case "badger":
		if cfg.Path == "" {
			return nil, fmt.Errorf("kv: badger backend requires a directory")
		}
		return NewBadgerStore(filepath.Clean(cfg.Path))
	case "redis":
		return NewRedisStore(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			Prefix:   cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("%w: %s (supported: memory, file, sqlite, redis, badger)", ErrUnknownBackend, cfg.Backend)
	}
}

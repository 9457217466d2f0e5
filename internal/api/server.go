// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves media metadata and library files over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/vodplay/internal/api/middleware"
	"github.com/ManuGH/vodplay/internal/cache"
	"github.com/ManuGH/vodplay/internal/health"
	"github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metadata"
	"github.com/ManuGH/vodplay/internal/metrics"
)

// Analyzer produces a descriptor for a file on disk.
type Analyzer interface {
	Probe(ctx context.Context, path string) (media.Descriptor, error)
}

// Options configures a Server.
type Options struct {
	LibraryRoot string
	Analyzer    Analyzer
	Cache       cache.Cache
	CacheTTL    time.Duration
	Health      *health.Manager
	Stack       middleware.StackConfig
	// MetricsEnabled mounts /metrics.
	MetricsEnabled bool
	Logger         *zerolog.Logger
}

// Server holds the HTTP handlers of the daemon.
type Server struct {
	root     string
	analyzer Analyzer
	cache    cache.Cache
	cacheTTL time.Duration
	health   *health.Manager
	group    singleflight.Group
	logger   zerolog.Logger
	router   *chi.Mux
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	if opts.LibraryRoot == "" {
		return nil, errors.New("api: library root is required")
	}
	if opts.Analyzer == nil {
		return nil, errors.New("api: analyzer is required")
	}
	root, err := filepath.Abs(opts.LibraryRoot)
	if err != nil {
		return nil, fmt.Errorf("api: resolve library root: %w", err)
	}

	s := &Server{
		root:     root,
		analyzer: opts.Analyzer,
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		health:   opts.Health,
	}
	if s.cache == nil {
		s.cache = cache.NewNoOpCache()
	}
	if s.cacheTTL <= 0 {
		s.cacheTTL = 10 * time.Minute
	}
	if s.health == nil {
		s.health = health.NewManager("")
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	} else {
		s.logger = log.WithComponent("api")
	}

	s.router = s.routes(opts)
	return s, nil
}

func (s *Server) routes(opts Options) *chi.Mux {
	stack := opts.Stack
	stack.RateLimitExclude = append(stack.RateLimitExclude, "/healthz", "/readyz", "/metrics")
	r := middleware.NewRouter(stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if opts.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Get(metadata.InfoPrefix+"*", s.handleInfo)
	r.Get("/video/*", s.handleVideo)
	r.Head("/video/*", s.handleVideo)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// LibraryRoot returns the absolute library root.
func (s *Server) LibraryRoot() string {
	return s.root
}

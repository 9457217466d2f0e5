// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metadata fetches media descriptors from the server's info endpoint.
package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/vodplay/internal/cache"
	"github.com/ManuGH/vodplay/internal/locator"
	xglog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metrics"
	"github.com/ManuGH/vodplay/internal/platform/httpx"
)

// ErrMetadataUnavailable covers transport failures, non-2xx answers and
// malformed documents.
var ErrMetadataUnavailable = errors.New("media metadata unavailable")

// InfoPrefix is the server route of the metadata endpoint.
const InfoPrefix = "/api/video/info/"

const (
	defaultTimeout  = 10 * time.Second
	defaultRetries  = 2
	defaultCacheTTL = 5 * time.Minute
)

// InfoPath returns the request path for itemPath. The whole item path is a
// single escaped component, slashes included.
func InfoPath(itemPath string) string {
	return InfoPrefix + locator.EscapeComponent(itemPath)
}

// Client fetches descriptors. Concurrent fetches of the same item share one
// request, and successful documents are cached.
type Client struct {
	base     *url.URL
	http     *http.Client
	cache    cache.Cache
	cacheTTL time.Duration
	timeout  time.Duration
	group    singleflight.Group
	logger   zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the retrying default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache enables descriptor caching for ttl.
func WithCache(cc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cc
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("metadata: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("metadata: base url must be http(s), got %q", baseURL)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("metadata: base url has no host")
	}

	c := &Client{
		base:     base,
		cache:    cache.NewNoOpCache(),
		cacheTTL: defaultCacheTTL,
		timeout:  defaultTimeout,
		logger:   xglog.WithComponent("metadata"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpx.NewRetryableClient(c.timeout, defaultRetries)
	}
	return c, nil
}

// BaseURL returns the server base URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Fetch returns the descriptor of itemPath. Every failure wraps
// ErrMetadataUnavailable.
func (c *Client) Fetch(ctx context.Context, itemPath string) (media.Descriptor, error) {
	key := "info:" + itemPath
	if raw, ok := c.cache.Get(ctx, key); ok {
		if d, err := media.DecodeDescriptor(bytes.NewReader(raw)); err == nil {
			metrics.RecordMetadataFetch("cached")
			return d, nil
		}
		c.cache.Delete(ctx, key)
	}

	ch := c.group.DoChan(itemPath, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(fetchCtx, itemPath)
	})

	select {
	case <-ctx.Done():
		return media.Descriptor{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordMetadataFetch("unavailable")
			return media.Descriptor{}, res.Err
		}
		raw := res.Val.([]byte)
		d, err := media.DecodeDescriptor(bytes.NewReader(raw))
		if err != nil {
			metrics.RecordMetadataFetch("unavailable")
			return media.Descriptor{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
		}
		c.cache.Set(ctx, key, raw, c.cacheTTL)
		metrics.RecordMetadataFetch("ok")
		return d, nil
	}
}

// fetch returns the validated raw document.
func (c *Client) fetch(ctx context.Context, itemPath string) ([]byte, error) {
	base := *c.base
	base.RawQuery, base.Fragment = "", ""
	target := strings.TrimSuffix(base.String(), "/") + InfoPath(itemPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if rid := xglog.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}

	logger := c.logger.With().Str(xglog.FieldPath, itemPath).Logger()
	resp, err := c.http.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("metadata request failed")
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		logger.Warn().Int("status", resp.StatusCode).Msg("metadata request rejected")
		return nil, fmt.Errorf("%w: HTTP %d", ErrMetadataUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrMetadataUnavailable, err)
	}
	if _, err := media.DecodeDescriptor(bytes.NewReader(raw)); err != nil {
		logger.Warn().Err(err).Msg("metadata document malformed")
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	return raw, nil
}

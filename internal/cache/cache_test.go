// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer func() { _ = c.Close() }()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	buf := []byte("abc")
	c.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'X'

	got, _ := c.Get(ctx, "k")
	got[1] = 'Y'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0).(*memoryCache)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set(ctx, "k", []byte("v"), time.Second)
	now = now.Add(2 * time.Second)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.deleteExpired())
	assert.Equal(t, int64(1), c.Stats().Evictions)
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_JanitorStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := NewMemoryCache(5 * time.Millisecond)
	c.Set(context.Background(), "k", []byte("v"), time.Millisecond)
	require.Eventually(t, func() bool { return c.Stats().CurrentSize == 0 }, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	c.Set(context.Background(), "k", []byte("v"), time.Minute)
	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
}

func TestOpen(t *testing.T) {
	c, err := Open(Config{}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.Close())

	c, err = Open(Config{Backend: "none"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, noOpCache{}, c)

	_, err = Open(Config{Backend: "memcached"}, zerolog.Nop())
	assert.Error(t, err)

	_, err = Open(Config{Backend: "redis"}, zerolog.Nop())
	assert.Error(t, err)
}

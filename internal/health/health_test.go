// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/config"
)

func TestManager_HealthIgnoresChecksUnlessVerbose(t *testing.T) {
	m := NewManager("1.0.0")
	m.RegisterChecker(CheckFunc{CheckName: "redis", Fn: func(context.Context) error { return errors.New("down") }})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.True(t, resp.Ready, "liveness never reports not ready")
	assert.Equal(t, "down", resp.Checks["redis"].Error)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []Checker
		wantReady  bool
		wantStatus Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"healthy", []Checker{CheckFunc{CheckName: "a", Fn: func(context.Context) error { return nil }}}, true, StatusHealthy},
		{"degraded stays ready", []Checker{
			CheckFunc{CheckName: "a", Fn: func(context.Context) error { return errors.New("slow") }, Degraded: true},
		}, true, StatusDegraded},
		{"unhealthy wins over degraded", []Checker{
			CheckFunc{CheckName: "a", Fn: func(context.Context) error { return errors.New("slow") }, Degraded: true},
			CheckFunc{CheckName: "b", Fn: func(context.Context) error { return errors.New("down") }},
		}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("")
			for _, c := range tt.checkers {
				m.RegisterChecker(c)
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.wantStatus, resp.Status)
		})
	}
}

func TestServeReady_StatusCodes(t *testing.T) {
	m := NewManager("")
	m.RegisterChecker(NewDirChecker("library", filepath.Join(t.TempDir(), "missing")))

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
	assert.Equal(t, "directory not found", resp.Checks["library"].Error)

	rec = httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, StatusHealthy, NewDirChecker("lib", dir).Check(context.Background()).Status)

	file := filepath.Join(dir, "a.mp4")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	assert.Equal(t, StatusHealthy, NewDirChecker("lib", dir).Check(context.Background()).Status)
	assert.Equal(t, StatusUnhealthy, NewDirChecker("lib", file).Check(context.Background()).Status)
}

func TestBinaryChecker_MissingIsDegraded(t *testing.T) {
	res := NewBinaryChecker("ffprobe", "definitely-not-a-real-binary-vodplay").Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.LibraryRoot = t.TempDir()
	cfg.Analyzer.FFprobeBin = "definitely-not-a-real-binary-vodplay"
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	bad := cfg
	bad.Server.LibraryRoot = filepath.Join(cfg.Server.LibraryRoot, "missing")
	assert.Error(t, PerformStartupChecks(context.Background(), bad))

	bad = cfg
	bad.Server.ListenAddr = "8080"
	assert.Error(t, PerformStartupChecks(context.Background(), bad))
}

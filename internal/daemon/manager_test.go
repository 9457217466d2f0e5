// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vodplay/internal/config"
)

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddr:      "127.0.0.1:0",
		ReadTimeout:     5 * time.Second,
		ShutdownTimeout: 2 * time.Second,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
}

func startManager(t *testing.T, m Manager) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Start(ctx) }()
	require.Eventually(t, func() bool { return m.Addr() != "" }, 2*time.Second, 5*time.Millisecond)
	return cancel, done
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrMissingHandler)

	cfg := testServerConfig()
	cfg.ListenAddr = ""
	_, err = NewManager(cfg, Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	assert.ErrorIs(t, err, ErrMissingListenAddr)
}

func TestManager_ServesUntilCancelled(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	require.NoError(t, err)

	cancel, done := startManager(t, m)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + m.Addr() + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("manager did not stop")
	}
}

func TestManager_StartTwice(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	require.NoError(t, err)
	cancel, done := startManager(t, m)
	defer func() {
		cancel()
		<-done
	}()

	assert.ErrorIs(t, m.Start(context.Background()), ErrManagerStarted)
}

func TestManager_ShutdownBeforeStart(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	require.NoError(t, err)
	assert.ErrorIs(t, m.Shutdown(context.Background()), ErrManagerNotStarted)
}

func TestManager_HooksRunLIFO(t *testing.T) {
	m, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	require.NoError(t, err)

	var mu sync.Mutex
	var order []string
	hook := func(name string, err error) ShutdownHook {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return err
		}
	}
	m.RegisterShutdownHook("cache", hook("cache", nil))
	m.RegisterShutdownHook("telemetry", hook("telemetry", errors.New("flush failed")))

	cancel, done := startManager(t, m)
	cancel()
	err = <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hook telemetry")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"telemetry", "cache"}, order)
}

func TestManager_ListenFailure(t *testing.T) {
	cfg := testServerConfig()
	cfg.ListenAddr = "127.0.0.1:99999"
	m, err := NewManager(cfg, Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	require.NoError(t, err)
	assert.Error(t, m.Start(context.Background()))
}

func TestApp_ReloadReachesCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	root := t.TempDir()
	require.NoError(t, os.WriteFile(path, []byte("server:\n  library_root: "+root+"\nlogging:\n  level: info\n"), 0o600))

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	holder := config.NewHolder(cfg, loader)

	m, err := NewManager(testServerConfig(), Deps{Logger: zerolog.Nop(), Handler: okHandler()})
	require.NoError(t, err)

	reloaded := make(chan config.Config, 1)
	app := NewApp(zerolog.Nop(), m, holder, func(c config.Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	app.reloadSignal = nil

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	require.Eventually(t, func() bool { return m.Addr() != "" }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  library_root: "+root+"\nlogging:\n  level: debug\n"), 0o600))
	require.NoError(t, holder.Reload(ctx))

	select {
	case c := <-reloaded:
		assert.Equal(t, "debug", c.Logging.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("reload callback not called")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RequiresManager(t *testing.T) {
	app := NewApp(zerolog.Nop(), nil, nil, nil)
	assert.ErrorIs(t, app.Run(context.Background()), ErrMissingManager)
}

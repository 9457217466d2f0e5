// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"

	"github.com/ManuGH/vodplay/internal/config"
	"github.com/ManuGH/vodplay/internal/log"
)

// PerformStartupChecks validates the daemon environment before serving.
// A missing ffprobe only warns; analysis requests will fail until it exists.
func PerformStartupChecks(_ context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")

	info, err := os.Stat(cfg.Server.LibraryRoot)
	if err != nil {
		return fmt.Errorf("library root check failed: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("library root is not a directory: %s", cfg.Server.LibraryRoot)
	}

	_, port, err := net.SplitHostPort(cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Server.ListenAddr, err)
	}
	if n, err := strconv.Atoi(port); err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid listen port %q in %q", port, cfg.Server.ListenAddr)
	}

	bin := cfg.Analyzer.FFprobeBin
	if bin == "" {
		bin = "ffprobe"
	}
	if resolved, err := exec.LookPath(bin); err != nil {
		logger.Warn().Err(err).Str("ffprobe", bin).Str("source", string(cfg.Analyzer.FFprobeSource)).Msg("ffprobe not found; media analysis will fail")
	} else {
		logger.Debug().Str("ffprobe", resolved).Str("source", string(cfg.Analyzer.FFprobeSource)).Msg("ffprobe resolved")
	}

	logger.Info().
		Str("library_root", cfg.Server.LibraryRoot).
		Str("listen_addr", cfg.Server.ListenAddr).
		Msg("startup checks passed")
	return nil
}

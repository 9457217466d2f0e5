// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command daemon serves media metadata and library files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/vodplay/internal/config"
	"github.com/ManuGH/vodplay/internal/daemon"
	"github.com/ManuGH/vodplay/internal/health"
	vplog "github.com/ManuGH/vodplay/internal/log"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the config is loaded.
	vplog.Configure(vplog.Config{Level: "info", Service: "vodplay-daemon", Version: version})
	logger := vplog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvConfigPath))
	}
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Str("config_path", path).Msg("failed to load configuration")
	}

	vplog.Configure(vplog.Config{Level: cfg.Logging.Level, Service: "vodplay-daemon", Version: version})
	logger = vplog.WithComponent("daemon")
	if path != "" {
		logger.Info().Str("event", "config.loaded").Str("source", "file").Str("path", path).Msg("loaded configuration from file")
	} else {
		logger.Info().Str("event", "config.loaded").Str("source", "env+defaults").Msg("loaded configuration from environment and defaults")
	}

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str("event", "startup.check_failed").Msg("startup checks failed")
	}

	rt, err := buildServices(ctx, cfg, version)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "startup.wiring_failed").Msg("failed to build services")
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{Logger: logger, Handler: rt.handler})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "manager.creation.failed").Msg("failed to create daemon manager")
	}
	for _, c := range rt.closers {
		mgr.RegisterShutdownHook(c.name, c.fn)
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("addr", cfg.Server.ListenAddr).
		Str("library_root", cfg.Server.LibraryRoot).
		Str("cache", cfg.Cache.Backend).
		Bool("tracing", cfg.Telemetry.Enabled).
		Msg("starting vodplay daemon")

	holder := config.NewHolder(cfg, loader)
	app := daemon.NewApp(logger, mgr, holder, applyReload(cfg))
	if err := app.Run(ctx); err != nil {
		logger.Fatal().Err(err).Str("event", "manager.failed").Msg("daemon app failed")
	}
	logger.Info().Msg("server exiting")
}

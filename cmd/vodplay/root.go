// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vodplay/internal/config"
	vplog "github.com/ManuGH/vodplay/internal/log"
)

type rootOptions struct {
	configPath string
	serverURL  string
	profile    string
	userAgent  string
	caps       []string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "vodplay",
		Short:         "Negotiate and play library items from a vodplay daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("vodplay version {{printf \"%s\" .Version}}\n")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", "", "config file path (env "+config.EnvConfigPath+")")
	persistent.StringVarP(&opts.serverURL, "server", "s", "", "daemon base URL (overrides client.server_url)")
	persistent.StringVarP(&opts.profile, "profile", "p", "", "preference profile (overrides client.profile)")
	persistent.StringVar(&opts.userAgent, "user-agent", "", "answer capability queries for this User-Agent")
	persistent.StringArrayVar(&opts.caps, "can-play", nil, "MIME type the device plays natively (repeatable)")
	persistent.StringVar(&opts.logLevel, "log-level", "", "log level (overrides logging.level)")

	cmd.AddCommand(
		newNegotiateCmd(opts),
		newPlayCmd(opts),
		newPreferenceCmd(opts),
		newCapabilitiesCmd(opts),
	)
	return cmd
}

// loadConfig applies defaults, file, environment, then command-line flags.
func (o *rootOptions) loadConfig() (config.Config, error) {
	path := strings.TrimSpace(o.configPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvConfigPath))
	}
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		return config.Config{}, err
	}

	if o.serverURL != "" {
		cfg.Client.ServerURL = o.serverURL
	}
	if o.profile != "" {
		cfg.Client.Profile = o.profile
	}
	if o.userAgent != "" {
		cfg.Client.UserAgent = o.userAgent
	}
	if len(o.caps) > 0 {
		cfg.Client.Capabilities = o.caps
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}

	vplog.Configure(vplog.Config{Level: cfg.Logging.Level, Output: os.Stderr, Service: "vodplay", Version: version})
	return cfg, nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

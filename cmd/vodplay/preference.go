// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/preference"
)

func newPreferenceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "preference",
		Aliases: []string{"pref"},
		Short:   "Show or change the stored format preference",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the stored preference (defaults when none is stored)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, prefs, err := openPreferences(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return writeJSON(cmd, prefs.Load(cmd.Context()))
		},
	})

	var auto bool
	set := &cobra.Command{
		Use:   "set <mode>",
		Short: "Always use a mode (original, hls, legacy, download)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := media.ParseModeID(args[0])
			if !ok {
				return fmt.Errorf("unknown mode %q (supported: original, hls, legacy, download)", args[0])
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, prefs, err := openPreferences(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p := preference.FormatPreference{PreferredMode: mode, AutoSelect: auto}
			prefs.Save(cmd.Context(), p)
			return writeJSON(cmd, prefs.Load(cmd.Context()))
		},
	}
	set.Flags().BoolVar(&auto, "auto", false, "record the mode but keep automatic selection")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore automatic selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, prefs, err := openPreferences(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			prefs.Save(cmd.Context(), preference.Default())
			return writeJSON(cmd, prefs.Load(cmd.Context()))
		},
	})
	return cmd
}

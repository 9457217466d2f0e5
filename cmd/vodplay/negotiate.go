// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vodplay/internal/capability"
	"github.com/ManuGH/vodplay/internal/playback"
	"github.com/ManuGH/vodplay/internal/preference"
)

// planOutput is the JSON shape printed by negotiate and play.
type planOutput struct {
	Item         string                      `json:"item"`
	Mode         string                      `json:"mode"`
	Locator      string                      `json:"locator"`
	Reason       string                      `json:"reason"`
	Fallback     bool                        `json:"fallback,omitempty"`
	Capabilities capability.Capabilities     `json:"capabilities"`
	Preference   preference.FormatPreference `json:"preference"`
	Session      string                      `json:"session,omitempty"`
	State        string                      `json:"state,omitempty"`
	Error        string                      `json:"error,omitempty"`
}

func newPlanOutput(p playback.Plan) planOutput {
	return planOutput{
		Item:         p.ItemPath,
		Mode:         string(p.Mode),
		Locator:      p.Locator,
		Reason:       string(p.Reason),
		Fallback:     p.Fallback,
		Capabilities: p.Capabilities,
		Preference:   p.Preference,
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newNegotiateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "negotiate <item-path>",
		Short: "Print the delivery mode and locator chosen for an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			plan, err := c.negotiator.Negotiate(cmd.Context(), args[0], c.querier)
			if err != nil {
				return err
			}
			return writeJSON(cmd, newPlanOutput(plan))
		},
	}
}

func newCapabilitiesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "capabilities",
		Short: "Print the decode capabilities used for negotiation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return writeJSON(cmd, capability.Probe(querierFor(cfg)))
		},
	}
}

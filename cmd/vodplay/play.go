// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vodplay/internal/session"
	"github.com/ManuGH/vodplay/internal/surface"
)

type playOptions struct {
	timeout time.Duration
	hold    time.Duration
}

func newPlayCmd(opts *rootOptions) *cobra.Command {
	po := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play <item-path>",
		Short: "Open a headless session for an item and start playback",
		Long: `Play negotiates a delivery mode, opens a session on a headless surface
and starts playback once the session is playing. Adaptive sessions load
the playlist and segments through the built-in engine, so recovery from
network and media faults can be observed with --hold.`,
		Args: cobra.ExactArgs(1),
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
			return runPlay(cmd, c, args[0], *po)
		},
	}
	cmd.Flags().DurationVar(&po.timeout, "timeout", 30*time.Second, "how long to wait for the session to start playing")
	cmd.Flags().DurationVar(&po.hold, "hold", 0, "keep the session open this long after playback starts")
	return cmd
}

func runPlay(cmd *cobra.Command, c *client, itemPath string, po playOptions) error {
	states := make(chan session.State, 16)
	player, err := c.newPlayer(func(_ *session.Session, _, to session.State) {
		select {
		case states <- to:
		default:
		}
	})
	if err != nil {
		return err
	}

	surf := surface.NewHeadless("cli", c.querier)
	s, plan, err := player.Open(cmd.Context(), itemPath, surf)
	if err != nil {
		return err
	}
	defer func() {
		s.Close()
		c.engines.wait()
	}()

	out := newPlanOutput(plan)
	out.Session = s.ID()

	state, err := awaitSettled(cmd.Context(), s, states, po.timeout)
	if err == nil && state == session.StatePlaying {
		err = s.Play()
		if err == nil && po.hold > 0 {
			state, err = holdSession(cmd.Context(), s, states, po.hold)
		}
	}
	if err == nil && state == session.StateFailed {
		err = s.Err()
	}

	out.State = string(s.State())
	if err != nil {
		out.Error = err.Error()
	}
	if werr := writeJSON(cmd, out); werr != nil {
		return werr
	}
	return err
}

// awaitSettled waits until s is playing or failed.
func awaitSettled(ctx context.Context, s *session.Session, states <-chan session.State, timeout time.Duration) (session.State, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if st := s.State(); st == session.StatePlaying || st.Terminal() {
			return st, nil
		}
		select {
		case <-states:
		case <-timer.C:
			return s.State(), fmt.Errorf("session did not start within %s", timeout)
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
}

// holdSession keeps s open for d, returning early if it fails.
func holdSession(ctx context.Context, s *session.Session, states <-chan session.State, d time.Duration) (session.State, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case st := <-states:
			if st.Terminal() {
				return st, nil
			}
		case <-timer.C:
			return s.State(), nil
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
}

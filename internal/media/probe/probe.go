// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package probe runs ffprobe against a library file and turns its output into
// a media.Descriptor, including the compatibility summary and the list of
// playback modes the server offers for the file.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/ManuGH/vodplay/internal/media"
	"github.com/rs/zerolog"
)

// ErrNoPlayableStreams is returned when ffprobe succeeds but reports neither a
// video nor an audio stream.
var ErrNoPlayableStreams = errors.New("probe: no playable streams")

const maxStderr = 4096

// Prober executes ffprobe.
type Prober struct {
	Bin     string        // ffprobe binary, defaults to "ffprobe"
	Timeout time.Duration // per-file bound, defaults to 30s
	Logger  zerolog.Logger
}

// NewProber returns a Prober using bin.
func NewProber(bin string, timeout time.Duration, logger zerolog.Logger) *Prober {
	return &Prober{Bin: bin, Timeout: timeout, Logger: logger}
}

// Probe analyzes the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (media.Descriptor, error) {
	bin := p.Bin
	if bin == "" {
		bin = "ffprobe"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}

	// #nosec G204 - binary comes from configuration; path is passed as a single argument
	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()

	var data Output
	jsonErr := json.Unmarshal(out, &data)
	if jsonErr == nil && data.hasPlayableStream() {
		if err != nil {
			// ffprobe exits non-zero on truncated files but still prints usable JSON.
			p.Logger.Warn().Err(err).Str("path", path).Str("stderr", truncate(stderr.String())).
				Msg("ffprobe non-zero exit but JSON accepted")
		}
		return Analyze(data), nil
	}

	switch {
	case err != nil:
		return media.Descriptor{}, fmt.Errorf("ffprobe failed: %w (stderr: %s)", err, truncate(stderr.String()))
	case jsonErr != nil:
		return media.Descriptor{}, fmt.Errorf("ffprobe json decode: %w", jsonErr)
	default:
		return media.Descriptor{}, ErrNoPlayableStreams
	}
}

func truncate(s string) string {
	if len(s) > maxStderr {
		return s[:maxStderr] + "..."
	}
	return s
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"strings"
)

// FFprobeSource names where the analyzer binary came from.
type FFprobeSource string

const (
	FFprobeConfigured   FFprobeSource = "configured"
	FFprobeBesideFFmpeg FFprobeSource = "ffmpeg_sibling"
	FFprobeFromPATH     FFprobeSource = "path"
)

const defaultFFprobeBinary = "ffprobe"

// FFprobeResolution is the binary the analyzer will exec and its origin.
type FFprobeResolution struct {
	Path   string
	Source FFprobeSource
}

// ResolveFFprobe picks the ffprobe binary for analysis:
//  1. an explicit ffprobe_bin (VODPLAY_FFPROBE_BIN)
//  2. an executable "ffprobe" next to a concrete ffmpeg_bin path
//  3. "ffprobe" looked up on PATH at exec time
func ResolveFFprobe(ffprobeBin, ffmpegBin string) FFprobeResolution {
	return resolveFFprobe(ffprobeBin, ffmpegBin, os.Stat)
}

func resolveFFprobe(ffprobeBin, ffmpegBin string, stat func(string) (os.FileInfo, error)) FFprobeResolution {
	if bin := strings.TrimSpace(ffprobeBin); bin != "" {
		return FFprobeResolution{Path: bin, Source: FFprobeConfigured}
	}
	if sibling, ok := ffprobeBeside(strings.TrimSpace(ffmpegBin), stat); ok {
		return FFprobeResolution{Path: sibling, Source: FFprobeBesideFFmpeg}
	}
	return FFprobeResolution{Path: defaultFFprobeBinary, Source: FFprobeFromPATH}
}

// ffprobeBeside derives .../ffprobe from .../ffmpeg. Bare names are PATH
// lookups and are not guessed from.
func ffprobeBeside(ffmpegBin string, stat func(string) (os.FileInfo, error)) (string, bool) {
	if ffmpegBin == "" || filepath.Dir(ffmpegBin) == "." {
		return "", false
	}
	if name := filepath.Base(ffmpegBin); name != "ffmpeg" && name != "ffmpeg.exe" {
		return "", false
	}
	candidate := filepath.Join(filepath.Dir(ffmpegBin), defaultFFprobeBinary)
	fi, err := stat(candidate)
	if err != nil || fi == nil || !fi.Mode().IsRegular() || fi.Mode().Perm()&0o111 == 0 {
		return "", false
	}
	return candidate, true
}

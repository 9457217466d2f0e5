// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strings"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	// Start every test from a clean VODPLAY_ environment.
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "VODPLAY_") {
			key, _, _ := strings.Cut(e, "=")
			if err := os.Unsetenv(key); err != nil {
				panic("failed to unset env: " + err.Error())
			}
		}
	}
	goleak.VerifyTestMain(m)
}

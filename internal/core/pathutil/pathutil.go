// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SecureJoin safely joins a library root with a client-provided item path.
// It prevents path traversal by ensuring the result stays within root.
func SecureJoin(root, userPath string) (string, error) {
	if strings.ContainsRune(userPath, 0) {
		return "", fmt.Errorf("NUL byte in path: %q", userPath)
	}
	cleaned := filepath.Clean(filepath.FromSlash(userPath))

	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("absolute paths are not allowed: %q", userPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal not allowed: %q", userPath)
	}

	full := filepath.Join(root, cleaned)

	rootClean := filepath.Clean(root) + string(filepath.Separator)
	fullClean := filepath.Clean(full) + string(filepath.Separator)
	if !strings.HasPrefix(fullClean, rootClean) {
		return "", fmt.Errorf("path escapes root directory: %q", userPath)
	}

	return full, nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/vodplay/internal/core/pathutil"
)

var (
	errBadItemPath  = errors.New("bad item path")
	errItemNotFound = errors.New("item not found")
)

// itemPathFrom extracts the decoded item path that follows prefix. The
// escaped form is used so that an encoded '/' or '%' survives routing.
func itemPathFrom(r *http.Request, prefix string) (string, error) {
	escaped := r.URL.EscapedPath()
	if !strings.HasPrefix(escaped, prefix) {
		return "", errBadItemPath
	}
	p, err := url.PathUnescape(strings.TrimPrefix(escaped, prefix))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errBadItemPath, err)
	}
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return "", errBadItemPath
	}
	return p, nil
}

// resolveItem maps an item path to a regular file inside the library root.
// Anything that escapes the root, including through symlinks, reads as
// not found.
func (s *Server) resolveItem(itemPath string) (string, os.FileInfo, error) {
	full, err := pathutil.SecureJoin(s.root, itemPath)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", errItemNotFound, err)
	}
	resolved, err := filepath.EvalSymlinks(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errItemNotFound
		}
		return "", nil, err
	}
	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return "", nil, fmt.Errorf("resolve library root: %w", err)
	}
	rel, err := filepath.Rel(realRoot, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("%w: symlink escapes library root", errItemNotFound)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, errItemNotFound
		}
		return "", nil, err
	}
	if !info.Mode().IsRegular() {
		return "", nil, fmt.Errorf("%w: not a regular file", errItemNotFound)
	}
	return resolved, info, nil
}

// writeResolveError answers a failed path extraction or resolution.
func writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBadItemPath):
		writeError(w, http.StatusBadRequest, "bad_request", "invalid item path")
	case errors.Is(err, errItemNotFound):
		writeError(w, http.StatusNotFound, "not_found", "item not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not resolve item")
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"os"

	"github.com/ManuGH/vodplay/internal/log"
)

const videoPrefix = "/video/"

// handleVideo streams a library file. Range and conditional requests are
// handled by http.ServeContent.
func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	itemPath, err := itemPathFrom(r, videoPrefix)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	full, info, err := s.resolveItem(itemPath)
	if err != nil {
		if !errors.Is(err, errItemNotFound) {
			logger.Error().Err(err).Str(log.FieldEvent, "video.resolve_error").Str(log.FieldPath, itemPath).Msg("could not resolve item")
		} else {
			logger.Debug().Err(err).Str(log.FieldEvent, "video.not_found").Str(log.FieldPath, itemPath).Msg("item not found")
		}
		writeResolveError(w, err)
		return
	}

	f, err := os.Open(full) // #nosec G304 -- confined to the library root by resolveItem
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "video.open_error").Str(log.FieldPath, itemPath).Msg("could not open item")
		writeError(w, http.StatusInternalServerError, "internal_error", "could not open item")
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

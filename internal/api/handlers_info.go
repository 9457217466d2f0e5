// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/vodplay/internal/api/middleware"
	"github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/media/probe"
	"github.com/ManuGH/vodplay/internal/metadata"
	"github.com/ManuGH/vodplay/internal/metrics"
)

// handleInfo answers the metadata endpoint with the analysis of one file.
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	logger := log.WithComponentFromContext(r.Context(), "api")

	itemPath, err := itemPathFrom(r, metadata.InfoPrefix)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	full, info, err := s.resolveItem(itemPath)
	if err != nil {
		if !errors.Is(err, errItemNotFound) {
			logger.Error().Err(err).Str(log.FieldEvent, "info.resolve_error").Str(log.FieldPath, itemPath).Msg("could not resolve item")
		}
		writeResolveError(w, err)
		return
	}

	// Keyed by size and mtime so a replaced file is analyzed again.
	key := "probe:" + itemPath + ":" + strconv.FormatInt(info.ModTime().UnixNano(), 10) + ":" + strconv.FormatInt(info.Size(), 10)

	d, err := s.describe(r.Context(), key, full)
	switch {
	case err == nil:
	case r.Context().Err() != nil:
		return
	case errors.Is(err, probe.ErrNoPlayableStreams):
		logger.Info().Str(log.FieldEvent, "info.unplayable").Str(log.FieldPath, itemPath).Msg("no playable streams")
		writeError(w, http.StatusUnprocessableEntity, "no_playable_streams", "item has no playable audio or video stream")
		return
	default:
		logger.Error().Err(err).Str(log.FieldEvent, "info.analysis_error").Str(log.FieldPath, itemPath).Msg("media analysis failed")
		writeError(w, http.StatusInternalServerError, "analysis_failed", "media analysis failed")
		return
	}

	if d.PlaybackModes == nil {
		d.PlaybackModes = []media.DeliveryMode{}
	}
	middleware.AddMediaAttributes(r, itemPath, d.PrimaryVideoCodec(), d.Format.Name, d.Format.Duration)
	w.Header().Set("Cache-Control", "private, max-age=60")
	writeJSON(w, http.StatusOK, d)
}

// describe returns the cached analysis for key or runs the analyzer once
// for all concurrent callers. A caller that goes away does not cancel the
// shared analysis.
func (s *Server) describe(ctx context.Context, key, full string) (media.Descriptor, error) {
	if raw, ok := s.cache.Get(ctx, key); ok {
		var d media.Descriptor
		if err := json.Unmarshal(raw, &d); err == nil {
			return d, nil
		}
		s.cache.Delete(ctx, key)
	}

	ch := s.group.DoChan(key, func() (any, error) {
		actx := context.WithoutCancel(ctx)
		start := time.Now()
		d, err := s.analyzer.Probe(actx, full)
		metrics.ObserveAnalysis(time.Since(start))
		if err != nil {
			return media.Descriptor{}, err
		}
		if raw, err := json.Marshal(d); err == nil {
			s.cache.Set(actx, key, raw, s.cacheTTL)
		}
		s.logger.Debug().Str(log.FieldEvent, "info.analyzed").Str(log.FieldPath, full).
			Dur("took", time.Since(start)).Msg("media analyzed")
		return d, nil
	})

	select {
	case <-ctx.Done():
		return media.Descriptor{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return media.Descriptor{}, res.Err
		}
		return res.Val.(media.Descriptor), nil
	}
}

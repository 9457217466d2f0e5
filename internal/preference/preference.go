// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package preference persists the user's delivery format preference.
//
// Storage problems never surface to callers: a missing, unreadable or corrupt
// value loads as the default and a failed save is logged and counted.
package preference

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vodplay/internal/kv"
	xglog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metrics"
)

// Key is the storage key of the preference within its scope.
const Key = "video_format_preference"

// FormatPreference is the persisted user choice.
type FormatPreference struct {
	PreferredMode media.ModeID `json:"preferredMode"`
	AutoSelect    bool         `json:"autoSelect"`
}

// Default returns the preference used when nothing valid is stored.
func Default() FormatPreference {
	return FormatPreference{PreferredMode: media.ModeAdaptive, AutoSelect: true}
}

// Store reads and writes the preference through a kv.Store.
type Store struct {
	kv     kv.Store
	scope  string
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithScope namespaces the storage key, e.g. per profile.
func WithScope(scope string) Option {
	return func(s *Store) { s.scope = scope }
}

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store on top of backend.
func New(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     backend,
		logger: xglog.WithComponent("preference"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key() string {
	if s.scope == "" {
		return Key
	}
	return s.scope + ":" + Key
}

// Load returns the stored preference, or Default when none is usable.
func (s *Store) Load(ctx context.Context) FormatPreference {
	key := s.key()
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldKey, key).Str(xglog.FieldEvent, "preference.load_failed").Msg("preference read failed, using default")
		metrics.RecordPreferenceFailure("load")
		return Default()
	}
	if !ok {
		return Default()
	}

	var p FormatPreference
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.logger.Debug().Err(err).Str(xglog.FieldKey, key).Msg("stored preference is malformed, using default")
		metrics.RecordPreferenceFailure("decode")
		return Default()
	}
	id, valid := media.ParseModeID(string(p.PreferredMode))
	if !valid {
		s.logger.Debug().Str(xglog.FieldKey, key).Str(xglog.FieldMode, string(p.PreferredMode)).Msg("stored preference names an unknown mode, using default")
		metrics.RecordPreferenceFailure("decode")
		return Default()
	}
	p.PreferredMode = id
	return p
}

// Save persists p. Failures are logged and counted, never returned.
func (s *Store) Save(ctx context.Context, p FormatPreference) {
	key := s.key()
	buf, err := json.Marshal(p)
	if err != nil {
		s.logger.Warn().Err(err).Msg("preference encode failed")
		metrics.RecordPreferenceFailure("save")
		return
	}
	if err := s.kv.Set(ctx, key, string(buf)); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldKey, key).Str(xglog.FieldEvent, "preference.save_failed").Msg("preference write failed")
		metrics.RecordPreferenceFailure("save")
		return
	}
	s.logger.Debug().Str(xglog.FieldKey, key).Str(xglog.FieldMode, string(p.PreferredMode)).Bool("auto_select", p.AutoSelect).Msg("preference saved")
}

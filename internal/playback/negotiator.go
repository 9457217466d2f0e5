// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback threads capabilities, preferences, metadata and the mode
// selector into a playback plan and opens a session for it.
package playback

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/vodplay/internal/capability"
	"github.com/ManuGH/vodplay/internal/locator"
	xglog "github.com/ManuGH/vodplay/internal/log"
	"github.com/ManuGH/vodplay/internal/media"
	"github.com/ManuGH/vodplay/internal/metrics"
	"github.com/ManuGH/vodplay/internal/preference"
	"github.com/ManuGH/vodplay/internal/selector"
	"github.com/ManuGH/vodplay/internal/telemetry"
)

// DescriptorSource returns the metadata document of an item.
// *metadata.Client implements it.
type DescriptorSource interface {
	Fetch(ctx context.Context, itemPath string) (media.Descriptor, error)
}

// Plan is the outcome of one negotiation.
type Plan struct {
	ItemPath     string
	Mode         media.ModeID
	Locator      string
	Reason       selector.Reason
	Capabilities capability.Capabilities
	Preference   preference.FormatPreference
	// Fallback is set when metadata could not be fetched and the adaptive
	// mode was chosen without consulting the selector.
	Fallback   bool
	Descriptor media.Descriptor
}

type Negotiator struct {
	source DescriptorSource
	prefs  *preference.Store
	logger zerolog.Logger
}

type NegotiatorOption func(*Negotiator)

func WithNegotiatorLogger(l zerolog.Logger) NegotiatorOption {
	return func(n *Negotiator) { n.logger = l }
}

// NewNegotiator creates a negotiator. A nil prefs store means the default
// preference is always used.
func NewNegotiator(source DescriptorSource, prefs *preference.Store, opts ...NegotiatorOption) *Negotiator {
	n := &Negotiator{
		source: source,
		prefs:  prefs,
		logger: xglog.WithComponent("playback"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Negotiate chooses a mode and locator for itemPath on a device described by
// q. Capabilities are probed once per call. When metadata is unavailable the
// adaptive mode is chosen; the direct mode is never guessed.
func (n *Negotiator) Negotiate(ctx context.Context, itemPath string, q capability.TypeQuerier) (Plan, error) {
	ctx, span := telemetry.Tracer("vodplay/playback").Start(ctx, "playback.negotiate",
		trace.WithAttributes(telemetry.MediaAttributes(itemPath, "", "", 0)...))
	defer span.End()

	plan := Plan{
		ItemPath:     itemPath,
		Capabilities: capability.Probe(q),
		Preference:   preference.Default(),
	}
	if n.prefs != nil {
		plan.Preference = n.prefs.Load(ctx)
	}

	logger := xglog.WithContext(ctx, n.logger).With().Str(xglog.FieldPath, itemPath).Logger()

	desc, err := n.source.Fetch(ctx, itemPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			span.SetStatus(codes.Error, ctxErr.Error())
			return Plan{}, ctxErr
		}
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "playback.metadata_unavailable").
			Msg("metadata unavailable, using adaptive stream")
		plan.Mode = media.ModeAdaptive
		plan.Reason = selector.ReasonMetadataUnavailable
		plan.Fallback = true
		plan.Locator = locator.Locate(itemPath, plan.Mode)
		metrics.RecordModeDecision(string(plan.Mode), string(plan.Reason))
		emitDecision(ctx, plan)
		span.SetAttributes(telemetry.PlaybackAttributes(string(plan.Mode), string(plan.Reason), true)...)
		return plan, nil
	}
	plan.Descriptor = desc

	decision, err := selector.Select(desc, plan.Capabilities, plan.Preference, desc.SupportedModes())
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "playback.no_mode").Msg("item has no playable mode")
		emitProblem(ctx, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Plan{}, err
	}
	plan.Mode = decision.Mode
	plan.Reason = decision.Reason
	plan.Locator = locator.Locate(itemPath, plan.Mode)
	metrics.RecordModeDecision(string(plan.Mode), string(plan.Reason))
	emitDecision(ctx, plan)
	span.SetAttributes(telemetry.PlaybackAttributes(string(plan.Mode), string(plan.Reason), false)...)

	logger.Info().
		Str(xglog.FieldEvent, "playback.mode_selected").
		Str(xglog.FieldMode, string(plan.Mode)).
		Str(xglog.FieldReason, string(plan.Reason)).
		Str(xglog.FieldCodec, desc.PrimaryVideoCodec()).
		Str(xglog.FieldLocator, plan.Locator).
		Msg("playback mode selected")
	return plan, nil
}

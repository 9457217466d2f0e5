// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ManuGH/vodplay/internal/selector"
)

const (
	meterName              = "vodplay.playback"
	decisionCounterName    = "vodplay_playback_decision_total"
	decisionProblemCounter = "vodplay_playback_decision_problem_total"
)

// emitDecision counts a negotiated plan on the global meter provider.
// The provider is looked up per call so a provider installed after startup
// is honored.
func emitDecision(ctx context.Context, plan Plan) {
	meter := otel.GetMeterProvider().Meter(meterName)
	counter, err := meter.Int64Counter(decisionCounterName, metric.WithDescription("Playback mode decisions"))
	if err != nil {
		return
	}
	counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", string(plan.Mode)),
		attribute.String("reason", string(plan.Reason)),
		attribute.Bool("fallback", plan.Fallback),
	))
}

// emitProblem counts a negotiation that produced no plan.
func emitProblem(ctx context.Context, cause error) {
	meter := otel.GetMeterProvider().Meter(meterName)
	counter, err := meter.Int64Counter(decisionProblemCounter, metric.WithDescription("Playback negotiations without a playable mode"))
	if err != nil {
		return
	}
	code := "error"
	if errors.Is(cause, selector.ErrNoPlayableMode) {
		code = "no_playable_mode"
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics provides Prometheus metrics for playback negotiation and
// session lifecycle.
// Labels are bounded enums only (no session ids, no paths).
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modeDecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodplay_mode_decision_total",
		Help: "Total number of delivery mode decisions, by mode and reason.",
	}, []string{"mode", "reason"})

	sessionTransitionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodplay_session_transition_total",
		Help: "Total number of session state transitions, by source and target state.",
	}, []string{"from", "to"})

	sessionRecoveryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodplay_session_recovery_total",
		Help: "Total number of engine recovery attempts, by error category and outcome.",
	}, []string{"category", "outcome"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vodplay_active_sessions",
		Help: "Current number of non-closed playback sessions.",
	})

	preferenceFailureTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodplay_preference_failure_total",
		Help: "Total number of swallowed preference store failures, by operation.",
	}, []string{"op"})

	metadataFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodplay_metadata_fetch_total",
		Help: "Total number of media metadata fetches, by result (ok, cached, unavailable).",
	}, []string{"result"})
)

// RecordModeDecision records one selector outcome.
func RecordModeDecision(mode, reason string) {
	modeDecisionTotal.WithLabelValues(normalizeModeLabel(mode), normalizeLabel(reason)).Inc()
}

// RecordSessionTransition records one session FSM transition.
func RecordSessionTransition(from, to string) {
	sessionTransitionTotal.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// RecordRecovery records a recovery attempt. Outcome is "attempt", "recovered",
// "failed" or "exhausted".
func RecordRecovery(category, outcome string) {
	sessionRecoveryTotal.WithLabelValues(normalizeCategoryLabel(category), normalizeLabel(outcome)).Inc()
}

// SessionOpened increments the active session gauge.
func SessionOpened() { activeSessions.Inc() }

// SessionClosed decrements the active session gauge.
func SessionClosed() { activeSessions.Dec() }

// RecordPreferenceFailure records a swallowed preference load/save failure.
func RecordPreferenceFailure(op string) {
	switch op {
	case "load", "save", "decode":
	default:
		op = "unknown"
	}
	preferenceFailureTotal.WithLabelValues(op).Inc()
}

// RecordMetadataFetch records a metadata fetch result.
func RecordMetadataFetch(result string) {
	switch result {
	case "ok", "cached", "unavailable":
	default:
		result = "unknown"
	}
	metadataFetchTotal.WithLabelValues(result).Inc()
}

func normalizeModeLabel(mode string) string {
	switch m := strings.ToLower(strings.TrimSpace(mode)); m {
	case "original", "hls", "legacy", "download":
		return m
	default:
		return "unknown"
	}
}

func normalizeCategoryLabel(category string) string {
	switch c := strings.ToLower(strings.TrimSpace(category)); c {
	case "network", "media", "mux", "key", "other":
		return c
	default:
		return "other"
	}
}

// normalizeLabel keeps free-form enum labels short and lowercase.
func normalizeLabel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || len(v) > 48 {
		return "unknown"
	}
	return v
}

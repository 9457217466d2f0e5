// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package middleware

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/vodplay/internal/telemetry"
)

// OTelHTTP wraps the handler with OpenTelemetry server instrumentation and
// propagates incoming trace context.
func OTelHTTP(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			serviceName,
			otelhttp.WithTracerProvider(otel.GetTracerProvider()),
			otelhttp.WithPropagators(otel.GetTextMapPropagator()),
			otelhttp.WithFilter(shouldTrace),
			otelhttp.WithSpanNameFormatter(spanNameFormatter),
		)
	}
}

// shouldTrace skips health and metrics scrapes.
func shouldTrace(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics":
		return false
	}
	return true
}

// spanNameFormatter names spans by route family so item paths do not end up
// in span names.
func spanNameFormatter(_ string, r *http.Request) string {
	return r.Method + " " + routeFamily(r.URL.Path)
}

func routeFamily(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/video/info/"):
		return "/api/video/info/*"
	case strings.HasPrefix(path, "/video/"):
		return "/video/*"
	}
	return path
}

// AddSpanAttributes adds attributes to the request span; a no-op without tracing.
func AddSpanAttributes(r *http.Request, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(r.Context()).SetAttributes(attrs...)
}

// AddMediaAttributes annotates the request span with the analysed item.
func AddMediaAttributes(r *http.Request, path, codec, container string, duration float64) {
	AddSpanAttributes(r, telemetry.MediaAttributes(path, codec, container, duration)...)
}

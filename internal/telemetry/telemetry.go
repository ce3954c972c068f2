// Package telemetry wraps OpenTelemetry tracing for the engine,
// grounded on the `telemetry.Tracer(name)` call pattern seen throughout
// steveyegge-beads' AI-call sites. Span names follow the original
// source's tracing convention (e.g. "hindsight.consolidation_recall")
// so the same operations stay recognizable across the port.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Init configures a stdout span exporter when HINDSIGHT_TRACE_STDOUT
// is set, otherwise leaves the global no-op tracer provider in place.
// Production deployments would instead wire an OTLP exporter; this
// keeps the zero-dependency default for local runs and tests.
func Init() (shutdown func(context.Context) error, err error) {
	if os.Getenv("HINDSIGHT_TRACE_STDOUT") == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// Tracer returns a named tracer, mirroring the pack's
// telemetry.Tracer(name) call sites.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Span names used across the engine's LLM and storage boundaries.
const (
	SpanConsolidationRecall = "hindsight.consolidation_recall"
	SpanConsolidationLLM    = "hindsight.consolidation_llm_call"
	SpanRetainExtract       = "hindsight.retain_extract"
	SpanRecallCandidates    = "hindsight.recall_candidates"
	SpanRecallRerank        = "hindsight.recall_rerank"
)

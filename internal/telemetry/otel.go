package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// OTelExporter forwards spans to an OTLP collector over gRPC, grounded on
// the teacher's observability/tracing.go OTLP wiring.
type OTelExporter struct {
	cfg    ExporterConfig
	tracer trace.Tracer
}

// NewOTelExporter dials endpoint (e.g. "localhost:4317") and returns an
// exporter backed by a batching span processor. Callers are responsible
// for calling Shutdown on the returned TracerProvider during process
// teardown.
func NewOTelExporter(ctx context.Context, endpoint string, cfg ExporterConfig) (*OTelExporter, *sdktrace.TracerProvider, error) {
	exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: otlp exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
	return &OTelExporter{cfg: cfg, tracer: tp.Tracer("swarmrt")}, tp, nil
}

func (e *OTelExporter) Name() string { return "otel" }

func (e *OTelExporter) Config() ExporterConfig { return e.cfg }

func (e *OTelExporter) Export(span Span) error {
	_, otelSpan := e.tracer.Start(context.Background(), span.Name, trace.WithTimestamp(span.StartTime))
	attrs := make([]attribute.KeyValue, 0, len(span.Attributes)+1)
	attrs = append(attrs, attribute.String("event.kind", string(span.Kind)))
	for k, v := range span.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	otelSpan.SetAttributes(attrs...)
	otelSpan.End(trace.WithTimestamp(span.EndTime))
	return nil
}

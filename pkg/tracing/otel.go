// Copyright 2026 fanjia1024
// OpenTelemetry integration for distributed tracing

package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

// OTelConfig configures the tracer provider.
type OTelConfig struct {
	ServiceName    string
	ExportEndpoint string
	Insecure       bool
}

// InitTracer sets up the global OpenTelemetry tracer provider, exporting
// spans over OTLP/HTTP.
func InitTracer(config OTelConfig) (*sdktrace.TracerProvider, error) {
	ctx := context.Background()

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.ExportEndpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}

// StartToolSpan starts a span covering a single tool execution, from the
// mode gate through effect execution and evidence capture.
func StartToolSpan(ctx context.Context, toolName string, category string) (context.Context, trace.Span) {
	tracer := otel.Tracer("agentcore")
	return tracer.Start(ctx, "tool.execute",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("tool.category", category),
		),
	)
}

// StartApprovalSpan starts a span covering the wait for a pending approval
// to resolve.
func StartApprovalSpan(ctx context.Context, kind string, approvalID string) (context.Context, trace.Span) {
	tracer := otel.Tracer("agentcore")
	return tracer.Start(ctx, "approval.wait",
		trace.WithAttributes(
			attribute.String("approval.kind", kind),
			attribute.String("approval.id", approvalID),
		),
	)
}

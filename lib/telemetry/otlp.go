package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	protocolNone = ""
	protocolGrpc = "grpc"
	protocolHttp = "http"
)

const defaultMetricInterval = 30 * time.Second

// OtlpConnConfig points at one collector endpoint, grpc wins when both are set.
type OtlpConnConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c OtlpConnConfig) protocol() (string, string) {
	switch {
	case c.GrpcEndpoint != "":
		return protocolGrpc, c.GrpcEndpoint
	case c.HttpEndpoint != "":
		return protocolHttp, c.HttpEndpoint
	}
	return protocolNone, ""
}

type OtlpConfig struct {
	Traces  OtlpConnConfig `json:"traces"`
	Metrics OtlpConnConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// seconds between metric exports, defaults to 30
	MetricInterval int `json:"metric_interval"`
	// fraction of runs traced, 0 means all of them
	SampleRatio float64 `json:"sample_ratio"`
}

func (c Config) metricInterval() time.Duration {
	if c.MetricInterval <= 0 {
		return defaultMetricInterval
	}
	return time.Duration(c.MetricInterval) * time.Second
}

func (c Config) sampler() trace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return trace.AlwaysSample()
	}
	return trace.ParentBased(trace.TraceIDRatioBased(c.SampleRatio))
}

func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	detected, err := resource.New(
		ctx,
		resource.WithHost(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceNamespace("foreclosures"),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), detected)
}

// newTraceProvider records spans without exporting them when no traces
// endpoint is configured.
func newTraceProvider(ctx context.Context, r *resource.Resource, cfg Config) (*trace.TracerProvider, error) {
	opts := []trace.TracerProviderOption{
		trace.WithResource(r),
		trace.WithSampler(cfg.sampler()),
	}

	protocol, endpoint := cfg.Otlp.Traces.protocol()
	var exporter trace.SpanExporter
	var err error
	switch protocol {
	case protocolGrpc:
		exporter, err = otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(endpoint),
			otlptracegrpc.WithHeaders(cfg.Otlp.Traces.Headers),
		)
	case protocolHttp:
		exporter, err = otlptracehttp.New(
			ctx,
			otlptracehttp.WithEndpointURL(endpoint),
			otlptracehttp.WithHeaders(cfg.Otlp.Traces.Headers),
		)
	}
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, trace.WithBatcher(exporter))
	}
	logExporter(ctx, "traces", protocol, endpoint)

	return trace.NewTracerProvider(opts...), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, cfg Config) (*metric.MeterProvider, error) {
	opts := []metric.Option{metric.WithResource(r)}

	protocol, endpoint := cfg.Otlp.Metrics.protocol()
	var exporter metric.Exporter
	var err error
	switch protocol {
	case protocolGrpc:
		exporter, err = otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Otlp.Metrics.Headers),
		)
	case protocolHttp:
		exporter, err = otlpmetrichttp.New(
			ctx,
			otlpmetrichttp.WithEndpointURL(endpoint),
			otlpmetrichttp.WithHeaders(cfg.Otlp.Metrics.Headers),
		)
	}
	if err != nil {
		return nil, err
	}
	if exporter != nil {
		opts = append(opts, metric.WithReader(
			metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.metricInterval())),
		))
	}
	logExporter(ctx, "metrics", protocol, endpoint)

	return metric.NewMeterProvider(opts...), nil
}

func logExporter(ctx context.Context, signal, protocol, endpoint string) {
	if protocol == protocolNone {
		slog.DebugContext(ctx, "no otlp endpoint, not exporting", "source", "telemetry", "signal", signal)
		return
	}
	slog.InfoContext(ctx, "otlp exporter initialized",
		"source", "telemetry",
		"signal", signal,
		"type", protocol,
		"endpoint", endpoint,
	)
}

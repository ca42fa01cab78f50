package telemetry

import (
	"context"
	"log/slog"
	"runtime/debug"
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

const defaultMetricInterval = 5 * time.Second

// ExporterConfig selects the OTLP transport of one signal, grpc wins when
// both endpoints are set. A signal with neither endpoint is not exported.
type ExporterConfig struct {
	GrpcEndpoint string            `json:"grpc_endpoint"`
	HttpEndpoint string            `json:"http_endpoint"`
	Headers      map[string]string `json:"headers"`
}

func (c ExporterConfig) enabled() bool {
	return c.GrpcEndpoint != "" || c.HttpEndpoint != ""
}

func (c ExporterConfig) log(signal string) {
	transport, endpoint := "http", c.HttpEndpoint
	if c.GrpcEndpoint != "" {
		transport, endpoint = "grpc", c.GrpcEndpoint
	}
	slog.Info(
		"otlp export initialized",
		"signal", signal,
		"type", transport,
		"endpoint", endpoint,
		"headers", len(c.Headers) > 0,
	)
}

type OtlpConfig struct {
	Traces  ExporterConfig `json:"traces"`
	Metrics ExporterConfig `json:"metrics"`
}

type Config struct {
	Otlp OtlpConfig `json:"otlp"`
	// MetricInterval is a duration string, it defaults to 5s.
	MetricInterval string `json:"metric_interval"`
}

func (c Config) metricInterval() time.Duration {
	if c.MetricInterval == "" {
		return defaultMetricInterval
	}
	interval, err := time.ParseDuration(c.MetricInterval)
	if err != nil || interval <= 0 {
		slog.Warn("invalid metric interval, using default", "value", c.MetricInterval, "err", err)
		return defaultMetricInterval
	}
	return interval
}

// moduleVersion is the version of the module the binary was built from,
// "(devel)" for local builds.
func moduleVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}

func newResource(serviceName string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(moduleVersion()),
		),
	)
}

// newTraceProvider returns nil when traces are not configured.
func newTraceProvider(ctx context.Context, r *resource.Resource, c ExporterConfig) (*trace.TracerProvider, error) {
	if !c.enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	var (
		exporter trace.SpanExporter
		err      error
	)
	if c.GrpcEndpoint != "" {
		exporter, err = otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpointURL(c.GrpcEndpoint),
			otlptracegrpc.WithHeaders(c.Headers),
		)
	} else {
		exporter, err = otlptracehttp.New(
			ctx,
			otlptracehttp.WithEndpointURL(c.HttpEndpoint),
			otlptracehttp.WithHeaders(c.Headers),
		)
	}
	if err != nil {
		return nil, err
	}
	c.log("traces")

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

// newMetricProvider returns nil when metrics are not configured.
func newMetricProvider(ctx context.Context, r *resource.Resource, c ExporterConfig, interval time.Duration) (*metric.MeterProvider, error) {
	if !c.enabled() {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*3)
	defer cancel()

	var (
		exporter metric.Exporter
		err      error
	)
	if c.GrpcEndpoint != "" {
		exporter, err = otlpmetricgrpc.New(
			ctx,
			otlpmetricgrpc.WithEndpointURL(c.GrpcEndpoint),
			otlpmetricgrpc.WithHeaders(c.Headers),
		)
	} else {
		exporter, err = otlpmetrichttp.New(
			ctx,
			otlpmetrichttp.WithEndpointURL(c.HttpEndpoint),
			otlpmetrichttp.WithHeaders(c.Headers),
		)
	}
	if err != nil {
		return nil, err
	}
	c.log("metrics")

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		metric.WithResource(r),
	), nil
}

// Package telemetry wires the global OpenTelemetry providers for the CLI.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// exporterEnv selects the exporter: none (default), stdout,
	// otlp-grpc, or otlp-http.
	exporterEnv = "AGIXTCTL_OTEL_EXPORTER"
	// instanceEnv overrides the hostname as the instance ID input.
	instanceEnv = "AGIXTCTL_INSTANCE_ID"

	serviceName = "agixtctl"
)

// ShutdownTimeout bounds provider flushing at process exit.
const ShutdownTimeout = 5 * time.Second

func noopShutdown(context.Context) error { return nil }

// InitProvider configures the global OpenTelemetry providers from the
// environment and returns the shutdown hook. Telemetry is off unless the
// exporter variable names a known exporter; unknown values stay off
// rather than failing CLI startup.
func InitProvider(ctx context.Context) (func(context.Context) error, error) {
	tracer, meter, err := buildExporters(ctx, os.Getenv(exporterEnv))
	if err != nil {
		return nil, err
	}
	if tracer == nil {
		return noopShutdown, nil
	}
	return installProvider(ctx, tracer, meter)
}

// buildExporters maps the exporter name to span and metric exporters.
// A nil span exporter means telemetry is disabled. Metrics are only
// available on the stdout exporter; the OTLP paths export traces.
func buildExporters(ctx context.Context, mode string) (sdktrace.SpanExporter, sdkmetric.Exporter, error) {
	switch mode {
	case "stdout":
		tracer, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, err
		}
		meter, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, err
		}
		return tracer, meter, nil
	case "otlp-grpc":
		tracer, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
		return tracer, nil, err
	case "otlp-http":
		tracer, err := otlptrace.New(ctx, otlptracehttp.NewClient())
		return tracer, nil, err
	default:
		return nil, nil, nil
	}
}

func installProvider(ctx context.Context, tracer sdktrace.SpanExporter, meter sdkmetric.Exporter) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceInstanceIDKey.String(hashInstanceID()),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(tracer),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	var mp *sdkmetric.MeterProvider
	if meter != nil {
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(meter)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
	}

	return func(ctx context.Context) error {
		if mp != nil {
			if err := mp.Shutdown(ctx); err != nil {
				return err
			}
		}
		return tp.Shutdown(ctx)
	}, nil
}

// hashInstanceID hides the hostname behind a digest so telemetry never
// carries raw machine identifiers.
func hashInstanceID() string {
	input := os.Getenv(instanceEnv)
	if input == "" {
		if host, err := os.Hostname(); err == nil {
			input = host
		}
	}
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Package observability provides OpenTelemetry trace export.
//
// Traces go to a local OTLP/HTTP collector (an agent on
// localhost:4318, or any OpenTelemetry Collector) which handles
// authentication, buffering, and forwarding to the backend. Running
// through a local collector keeps credentials out of the application
// and survives short backend outages.
//
// Export is opt-in: an empty endpoint leaves the global tracer
// provider untouched, so spans are no-ops.
package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mentora-ai/mentora/internal/config"
)

// Setup installs the global OTLP tracer provider.
//
// Returns a shutdown function that flushes pending spans; it is never
// nil. With an empty endpoint, or when the exporter cannot be built,
// tracing stays disabled and the shutdown function is a no-op.
func Setup(ctx context.Context, cfg config.OtelConfig, logger *slog.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		logger.Debug("trace export disabled, no otel endpoint configured")
		return noop, nil
	}

	// The SDK's default resource detector reads these, so the service
	// identity set here follows every span without a custom resource.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	// The local collector terminates TLS upstream; the app-to-agent hop
	// is plain HTTP.
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("building otlp exporter, tracing disabled", "error", err)
		return noop, nil
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)

	logger.Debug("trace export enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment,
	)

	return tp.Shutdown, nil
}

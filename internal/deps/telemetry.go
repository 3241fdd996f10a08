package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quizgenius/backend/internal/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/fx"
)

// OTelSDK sets up the trace and log providers configured by cfg and shuts them down when the app stops.
func OTelSDK(lifecycle fx.Lifecycle, cfg config.TelemetryConfig) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if cfg.Exporter == config.TelemetryExporterNone {
		return nil
	}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	spanExporter, err := newSpanExporter(ctx, cfg.Exporter)
	if err != nil {
		return err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	shutdowns := []func(context.Context) error{tracerProvider.Shutdown}

	if cfg.Logs {
		logExporter, err := newLogExporter(ctx, cfg.Exporter)
		if err != nil {
			return err
		}

		loggerProvider := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(loggerProvider)
		slog.SetDefault(otelslog.NewLogger(cfg.ServiceName, otelslog.WithLoggerProvider(loggerProvider)))

		shutdowns = append(shutdowns, loggerProvider.Shutdown)
	}

	slog.Info("opentelemetry enabled", "exporter", cfg.Exporter, "logs", cfg.Logs)

	lifecycle.Append(fx.StopHook(func(ctx context.Context) error {
		var err error
		for _, shutdown := range shutdowns {
			err = errors.Join(err, shutdown(ctx))
		}
		return err
	}))

	return nil
}

func newSpanExporter(ctx context.Context, exporter string) (sdktrace.SpanExporter, error) {
	switch exporter {
	case config.TelemetryExporterStdout:
		return stdouttrace.New()
	case config.TelemetryExporterOTLPHTTP:
		return otlptracehttp.New(ctx)
	case config.TelemetryExporterOTLPGRPC:
		return otlptracegrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}
}

func newLogExporter(ctx context.Context, exporter string) (sdklog.Exporter, error) {
	switch exporter {
	case config.TelemetryExporterStdout:
		return stdoutlog.New()
	case config.TelemetryExporterOTLPHTTP:
		return otlploghttp.New(ctx)
	case config.TelemetryExporterOTLPGRPC:
		return otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unknown telemetry exporter %q", exporter)
	}
}

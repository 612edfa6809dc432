package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/f1viz-service-go/log"
	"github.com/mpapenbr/f1viz-service-go/version"
)

var ErrUnknownExporter = errors.New("unknown exporter")

type Telemetry struct {
	shutdownFuncs  []func(context.Context) error
	metricsHandler http.Handler
}

// SetupTelemetry installs the global trace and meter providers according to
// TraceExporter, MetricExporter and TelemetryEndpoint.
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	t := &Telemetry{}
	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", "f1viz"),
		attribute.String("service.version", version.Version),
	)
	if TraceExporter != "none" {
		tp, err := t.initTracer(ctx, res)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		otel.SetTracerProvider(tp)
		t.shutdownFuncs = append(t.shutdownFuncs, tp.Shutdown)
	}
	if MetricExporter != "none" {
		mp, err := t.initMeter(ctx, res)
		if err != nil {
			t.Shutdown()
			return nil, fmt.Errorf("init meter: %w", err)
		}
		otel.SetMeterProvider(mp)
		t.shutdownFuncs = append(t.shutdownFuncs, mp.Shutdown)
	}
	return t, nil
}

//nolint:whitespace // editor/linter issue
func (t *Telemetry) initTracer(
	ctx context.Context, res *resource.Resource,
) (*sdktrace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error
	switch TraceExporter {
	case "", "otlp":
		exporter, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure())
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, TraceExporter)
	}
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

//nolint:whitespace // editor/linter issue
func (t *Telemetry) initMeter(
	ctx context.Context, res *resource.Resource,
) (*sdkmetric.MeterProvider, error) {
	var reader sdkmetric.Reader
	switch MetricExporter {
	case "", "otlp":
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	case "stdout":
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(time.Minute))
	case "prometheus":
		exporter, err := promexporter.New()
		if err != nil {
			return nil, err
		}
		reader = exporter
		t.metricsHandler = promhttp.Handler()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownExporter, MetricExporter)
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	), nil
}

// MetricsHandler is non-nil only when the prometheus exporter is active
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, f := range t.shutdownFuncs {
		if err := f(ctx); err != nil {
			log.Warn("telemetry shutdown", log.ErrorField(err))
		}
	}
	t.shutdownFuncs = nil
}

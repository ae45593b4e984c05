package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/zatekoja/feediq"

// Metrics holds the OpenTelemetry instruments. A nil *Metrics records nothing.
type Metrics struct {
	Requests     metric.Int64Counter
	RequestTime  metric.Float64Histogram
	StoreTime    metric.Float64Histogram
	CacheLookups metric.Int64Counter
}

// metricInterval is how often metrics are pushed to the collector
const metricInterval = 15 * time.Second

// Setup installs OTLP gRPC exporters for traces, metrics and logs, starts the
// Go runtime instrumentation and hooks the global zerolog logger into the log
// exporter. The returned function flushes everything and shuts it down.
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}

	var shutdowns []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (func(context.Context) error, error) {
		_ = shutdown(ctx)
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create otlp trace exporter: %w", err))
	}
	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	shutdowns = append(shutdowns, func(ctx context.Context) error {
		return errors.Join(tracerProvider.ForceFlush(ctx), tracerProvider.Shutdown(ctx))
	})
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	metricExporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create otlp metric exporter: %w", err))
	}
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(metricInterval))),
		sdkmetric.WithResource(res),
	)
	shutdowns = append(shutdowns, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(runtime.WithMeterProvider(meterProvider)); err != nil {
		return fail(fmt.Errorf("failed to start runtime instrumentation: %w", err))
	}

	logExporter, err := otlploggrpc.New(ctx,
		otlploggrpc.WithEndpoint(endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return fail(fmt.Errorf("failed to create otlp log exporter: %w", err))
	}
	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		sdklog.WithResource(res),
	)
	shutdowns = append(shutdowns, loggerProvider.Shutdown)
	ExportLogs(loggerProvider)

	return shutdown, nil
}

// InitMetrics creates the instruments on the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	var (
		m    Metrics
		err  error
		errs []error
	)
	m.Requests, err = meter.Int64Counter("feediq.http.requests",
		metric.WithDescription("Served HTTP requests"))
	errs = append(errs, err)

	m.RequestTime, err = meter.Float64Histogram("feediq.http.duration",
		metric.WithDescription("Time spent serving HTTP requests"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.StoreTime, err = meter.Float64Histogram("feediq.store.duration",
		metric.WithDescription("Time spent in the feedback store"),
		metric.WithUnit("s"))
	errs = append(errs, err)

	m.CacheLookups, err = meter.Int64Counter("feediq.cache.lookups",
		metric.WithDescription("Dashboard cache lookups by outcome"))
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return &m, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, spanName)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
}

// SetSpanAttributes sets attributes on a span
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// RecordRequestMetric records one served HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, route string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	)
	metrics.Requests.Add(ctx, 1, attrs)
	metrics.RequestTime.Record(ctx, duration.Seconds(), attrs)
}

// RecordStoreMetric records the duration of a storage collaborator call
func RecordStoreMetric(ctx context.Context, metrics *Metrics, operation string, duration time.Duration) {
	if metrics == nil {
		return
	}
	metrics.StoreTime.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("store.operation", operation)))
}

// RecordCacheLookup counts one cache read as a hit or a miss
func RecordCacheLookup(ctx context.Context, metrics *Metrics, key string, hit bool) {
	if metrics == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	metrics.CacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache.key", key),
		attribute.String("cache.outcome", outcome),
	))
}

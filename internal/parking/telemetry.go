package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultServiceName  = "parking-lot-service"
	ServiceVersion      = "1.0.0"
	DefaultOTLPEndpoint = "http://localhost:4318"
)

type TelemetryOptions struct {
	ServiceName string
	// Endpoint is the OTLP/HTTP base URL; "/v1/traces" and "/v1/metrics" are appended.
	Endpoint       string
	Environment    string
	ExportInterval time.Duration
	// ExportEnabled turns the OTLP exporters on. When false spans are sampled
	// but dropped and metrics only reach Reader.
	ExportEnabled bool
	// Reader is an optional extra metric reader, used by tests.
	Reader sdkmetric.Reader
}

type TelemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
}

func NewTelemetryProvider(ctx context.Context, opts TelemetryOptions) (*TelemetryProvider, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = DefaultServiceName
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultOTLPEndpoint
	}
	if opts.ExportInterval <= 0 {
		opts.ExportInterval = 5 * time.Second
	}

	attrs := []resource.Option{
		resource.WithAttributes(
			semconv.ServiceName(opts.ServiceName),
			semconv.ServiceVersion(ServiceVersion),
		),
		resource.WithFromEnv(),
	}
	if opts.Environment != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.DeploymentEnvironment(opts.Environment)))
	}

	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, err
	}

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	meterOpts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
	}

	if opts.ExportEnabled {
		traceExporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpointURL(opts.Endpoint+"/v1/traces"),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(traceExporter))

		metricExporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpointURL(opts.Endpoint+"/v1/metrics"),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		meterOpts = append(meterOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(opts.ExportInterval),
		)))
	}

	if opts.Reader != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(opts.Reader))
	}

	tracerProvider := sdktrace.NewTracerProvider(traceOpts...)
	meterProvider := sdkmetric.NewMeterProvider(meterOpts...)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TelemetryProvider{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		tracer:         tracerProvider.Tracer(opts.ServiceName),
		meter:          meterProvider.Meter(opts.ServiceName),
	}, nil
}

func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}

func (tp *TelemetryProvider) Meter() metric.Meter {
	return tp.meter
}

func (tp *TelemetryProvider) TracerProvider() trace.TracerProvider {
	return tp.tracerProvider
}

func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	if err := tp.tracerProvider.Shutdown(ctx); err != nil {
		return err
	}
	return tp.meterProvider.Shutdown(ctx)
}

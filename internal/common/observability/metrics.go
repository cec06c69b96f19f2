// internal/common/observability/metrics.go
package observability

import (
	"context"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"tour-estimate-workers/internal/common/logger"
)

type Options struct {
	ServiceName string
	// JaegerEndpoint is the collector URL. Tracing stays on the no-op
	// provider when empty.
	JaegerEndpoint string
	// Registerer defaults to the prometheus default registerer.
	Registerer promclient.Registerer
}

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	logger         logger.Logger
}

// New installs the global meter provider and, when configured, the global
// tracer provider. Exporter failures are logged and leave the matching
// provider unset; recording is then a no-op.
func New(opts Options, log logger.Logger) *Observability {
	o := &Observability{logger: logger.ForComponent(log, "observability")}
	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	o.initMetrics(opts, res)
	if opts.JaegerEndpoint != "" {
		o.initTracing(opts, res)
	}
	return o
}

func (o *Observability) initMetrics(opts Options, res *resource.Resource) {
	reg := opts.Registerer
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}
	exporter, err := prometheus.New(prometheus.WithRegisterer(reg))
	if err != nil {
		o.logger.Error("Failed to create Prometheus exporter", map[string]interface{}{"error": err})
		return
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(provider)

	o.meterProvider = provider
	o.meter = provider.Meter(opts.ServiceName)
	o.jobCounter, _ = o.meter.Int64Counter(
		"jobs_processed",
		otelmetric.WithDescription("Number of jobs processed"),
	)
	o.jobDuration, _ = o.meter.Float64Histogram(
		"jobs_duration",
		otelmetric.WithDescription("Job processing duration"),
		otelmetric.WithUnit("ms"),
	)
}

func (o *Observability) initTracing(opts Options, res *resource.Resource) {
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(opts.JaegerEndpoint)))
	if err != nil {
		o.logger.Error("Failed to create Jaeger exporter", map[string]interface{}{
			"error":    err,
			"endpoint": opts.JaegerEndpoint,
		})
		return
	}
	o.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(o.tracerProvider)
	o.logger.Info("Tracing enabled", map[string]interface{}{"endpoint": opts.JaegerEndpoint})
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o == nil || o.jobDuration == nil {
		return
	}
	o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

// Shutdown flushes pending spans and metrics.
func (o *Observability) Shutdown(ctx context.Context) {
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("Tracer provider shutdown failed", map[string]interface{}{"error": err})
		}
	}
	if o.meterProvider != nil {
		if err := o.meterProvider.Shutdown(ctx); err != nil {
			o.logger.Warn("Meter provider shutdown failed", map[string]interface{}{"error": err})
		}
	}
}

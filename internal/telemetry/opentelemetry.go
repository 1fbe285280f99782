// Package telemetry wires OpenTelemetry metrics into the Prometheus registry
// served at /metrics.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

const meterName = "go.pilab.hu/taskboard"

// InitMeterProvider installs a global MeterProvider that exports through reg.
func InitMeterProvider(reg prometheus.Registerer) (*metric.MeterProvider, error) {
	exporter, err := prometheusexporter.New(prometheusexporter.WithRegisterer(reg))
	if err != nil {
		return nil, err
	}

	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	log.Info().Msg("OpenTelemetry MeterProvider initialized with Prometheus exporter")
	return mp, nil
}

// ToolMetrics records tool gateway latency.
type ToolMetrics struct {
	duration otelmetric.Float64Histogram
}

// NewToolMetrics creates the instruments on the global MeterProvider.
// Before InitMeterProvider runs, the global provider is a no-op.
func NewToolMetrics() (*ToolMetrics, error) {
	duration, err := otel.Meter(meterName).Float64Histogram(
		"taskboard.tool.duration",
		otelmetric.WithDescription("Duration of tool gateway calls."),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &ToolMetrics{duration: duration}, nil
}

// Record observes one call. A nil receiver records nothing.
func (m *ToolMetrics) Record(ctx context.Context, tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.duration.Record(ctx, elapsed.Seconds(), otelmetric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}

// Shutdown flushes and stops the tracer and meter providers.
func Shutdown(ctx context.Context, tp *trace.TracerProvider, mp *metric.MeterProvider) {
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Error shutting down OpenTelemetry TracerProvider")
		} else {
			log.Info().Msg("OpenTelemetry TracerProvider shut down successfully")
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("Error shutting down OpenTelemetry MeterProvider")
		} else {
			log.Info().Msg("OpenTelemetry MeterProvider shut down successfully")
		}
	}
}

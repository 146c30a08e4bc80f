package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider    *metric.MeterProvider
	meter            otelmetric.Meter
	scenarioCounter  otelmetric.Int64Counter
	scenarioDuration otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	scenarioCounter, _ := meter.Int64Counter(
		"scenarios.executed",
		otelmetric.WithDescription("Number of audit scenarios executed"),
	)

	scenarioDuration, _ := meter.Float64Histogram(
		"scenarios.duration",
		otelmetric.WithDescription("Audit scenario execution duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:    provider,
		meter:            meter,
		scenarioCounter:  scenarioCounter,
		scenarioDuration: scenarioDuration,
	}
}

func (o *Observability) RecordScenarioExecuted(ctx context.Context, scenarioID, result string) {
	if o.scenarioCounter != nil {
		o.scenarioCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("scenario_id", scenarioID),
			attribute.String("result", result),
		))
	}
}

func (o *Observability) RecordScenarioDuration(ctx context.Context, scenarioID string, duration time.Duration) {
	if o.scenarioDuration != nil {
		o.scenarioDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("scenario_id", scenarioID),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}

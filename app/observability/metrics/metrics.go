package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	PlanRequestsTotal           metric.Int64Counter
	PlanDurationSeconds         metric.Float64Histogram
	ProviderCallDurationSeconds metric.Float64Histogram
	ProviderErrorsTotal         metric.Int64Counter
	DegradedStepsTotal          metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the instruments once, from the global MeterProvider.
// Call it after the provider is installed so the Prometheus exporter sees them.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TripPlanner")
		var err error
		m := &AppMetrics{}

		m.PlanRequestsTotal, err = meter.Int64Counter(
			"plan_requests_total",
			metric.WithDescription("Total number of planning runs by outcome state"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_requests_total: %v", err)
		}

		m.PlanDurationSeconds, err = meter.Float64Histogram(
			"plan_duration_seconds",
			metric.WithDescription("Duration of planning runs in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create plan_duration_seconds: %v", err)
		}

		m.ProviderCallDurationSeconds, err = meter.Float64Histogram(
			"provider_call_duration_seconds",
			metric.WithDescription("Duration of outbound provider calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_call_duration_seconds: %v", err)
		}

		m.ProviderErrorsTotal, err = meter.Int64Counter(
			"provider_errors_total",
			metric.WithDescription("Total number of failed outbound provider calls"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create provider_errors_total: %v", err)
		}

		m.DegradedStepsTotal, err = meter.Int64Counter(
			"pipeline_degraded_steps_total",
			metric.WithDescription("Pipeline steps that finished without a result"),
			metric.WithUnit("{step}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create pipeline_degraded_steps_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the instruments, initializing them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

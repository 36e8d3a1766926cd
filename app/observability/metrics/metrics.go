package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	GenerationAttemptsTotal   metric.Int64Counter
	GenerationRunsTotal       metric.Int64Counter
	GenerationDurationSeconds metric.Float64Histogram
	PlacesMaterializedTotal   metric.Int64Counter
	PlanSynthesisTotal        metric.Int64Counter
	PlanStopsDroppedTotal     metric.Int64Counter
	PlanVersionsSavedTotal    metric.Int64Counter
	TasksProcessedTotal       metric.Int64Counter
	DbQueryDurationSeconds    metric.Float64Histogram
	DbQueryErrorsTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once from the global MeterProvider.
// Call it after the provider is installed so the instruments export.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("trip-planner")
		m := &AppMetrics{}
		m.GenerationAttemptsTotal = counter(meter, "generation_attempts_total", "Recommendation generation attempts by outcome", "{attempt}")
		m.GenerationRunsTotal = counter(meter, "generation_runs_total", "Background generation runs by outcome", "{run}")
		m.GenerationDurationSeconds = histogram(meter, "generation_duration_seconds", "Duration of recommendation generation")
		m.PlacesMaterializedTotal = counter(meter, "places_materialized_total", "Generated places persisted", "{place}")
		m.PlanSynthesisTotal = counter(meter, "plan_synthesis_total", "Plan synthesis runs by outcome", "{run}")
		m.PlanStopsDroppedTotal = counter(meter, "plan_stops_dropped_total", "Duplicate stops removed from synthesized plans", "{stop}")
		m.PlanVersionsSavedTotal = counter(meter, "plan_versions_saved_total", "Plan versions persisted", "{version}")
		m.TasksProcessedTotal = counter(meter, "worker_tasks_processed_total", "Background tasks processed by outcome", "{task}")
		m.DbQueryDurationSeconds = histogram(meter, "db_query_duration_seconds", "Duration of database queries")
		m.DbQueryErrorsTotal = counter(meter, "db_query_errors_total", "Total number of database query errors", "{error}")
		appMetrics = m
	})
}

// Get returns the instruments, creating them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

func counter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

func histogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return h
}

// ObserveQuery records the latency of one repository call and counts it as an error when err is set.
func (m *AppMetrics) ObserveQuery(ctx context.Context, query string, start time.Time, err error) {
	attrs := metric.WithAttributes(attribute.String("query", query))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

package analytics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	analyticsMetricsOnce  sync.Once
	analyticsQueryCounter metric.Int64Counter
	analyticsLatency      metric.Float64Histogram
)

func initAnalyticsMetrics() {
	analyticsMetricsOnce.Do(func() {
		meter := otel.Meter("nova/analytics")

		var err error
		analyticsQueryCounter, err = meter.Int64Counter(
			"nova.analytics.queries.total",
			metric.WithDescription("Analytics API queries by source, view and outcome"),
		)
		if err != nil {
			log.Printf("observability: failed to create analytics query counter: %v", err)
		}

		analyticsLatency, err = meter.Float64Histogram(
			"nova.analytics.query_time",
			metric.WithDescription("Analytics API round-trip time (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create analytics latency histogram: %v", err)
		}
	})
}

func recordQueryMetrics(ctx context.Context, req Request, outcome string, d time.Duration) {
	initAnalyticsMetrics()
	attrs := metric.WithAttributes(
		attribute.String("analytics.source", string(req.Source)),
		attribute.String("analytics.view", string(req.View)),
		attribute.String("analytics.outcome", outcome),
	)
	if analyticsQueryCounter != nil {
		analyticsQueryCounter.Add(ctx, 1, attrs)
	}
	if analyticsLatency != nil {
		analyticsLatency.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

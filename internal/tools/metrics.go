package tools

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
	toolMetricsOnce sync.Once
	toolRuns        metric.Int64Counter
	toolDuration    metric.Float64Histogram
)

func initToolMetrics() {
	toolMetricsOnce.Do(func() {
		meter := otel.Meter("nova/tools")

		var err error
		toolRuns, err = meter.Int64Counter(
			"nova.tool.runs.total",
			metric.WithDescription("Tool runs and follow-ups by outcome"),
		)
		if err != nil {
			log.Printf("observability: failed to create tool run counter: %v", err)
		}

		toolDuration, err = meter.Float64Histogram(
			"nova.tool.run_time",
			metric.WithDescription("Tool run duration (ms)"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			log.Printf("observability: failed to create tool duration histogram: %v", err)
		}
	})
}

func recordDispatch(ctx context.Context, tool, outcome string, d time.Duration) {
	initToolMetrics()
	attrs := metric.WithAttributes(
		attribute.String("tool.name", tool),
		attribute.String("tool.outcome", outcome),
	)
	if toolRuns != nil {
		toolRuns.Add(ctx, 1, attrs)
	}
	if toolDuration != nil {
		toolDuration.Record(ctx, float64(d.Milliseconds()), attrs)
	}
}

package session

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	sessionMetricsOnce   sync.Once
	sessionEvictions     metric.Int64Counter
	sessionSizeHistogram metric.Int64Histogram
)

func initSessionMetrics() {
	sessionMetricsOnce.Do(func() {
		meter := otel.Meter("nova/session")

		var err error
		sessionEvictions, err = meter.Int64Counter(
			"nova.session.evictions.total",
			metric.WithDescription("Session contexts evicted by policy"),
		)
		if err != nil {
			log.Printf("observability: failed to create session eviction counter: %v", err)
		}

		sessionSizeHistogram, err = meter.Int64Histogram(
			"nova.session.store_size",
			metric.WithDescription("Number of stored session contexts after a mutation"),
		)
		if err != nil {
			log.Printf("observability: failed to create session size histogram: %v", err)
		}
	})
}

func recordEviction(ctx context.Context, reason string, n int) {
	initSessionMetrics()
	if sessionEvictions != nil {
		sessionEvictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("session.eviction_reason", reason)))
	}
}

func recordSize(ctx context.Context, size int) {
	initSessionMetrics()
	if sessionSizeHistogram != nil {
		sessionSizeHistogram.Record(ctx, int64(size))
	}
}

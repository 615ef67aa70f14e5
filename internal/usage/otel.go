package usage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterGauge exports the cumulative totals of s as an observable gauge.
// Call it after observability.Init so the configured meter provider is used.
func RegisterGauge(s *Store) (metric.Registration, error) {
	meter := otel.Meter("nova/usage")

	gauge, err := meter.Int64ObservableGauge(
		"nova.tool.invocations.total",
		metric.WithDescription("Cumulative tool invocations by tool name"),
		metric.WithUnit("{invocations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create usage gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		totals, err := s.Totals(ctx)
		if err != nil {
			return err
		}
		for tool, count := range totals {
			o.ObserveInt64(gauge, count, metric.WithAttributes(attribute.String("tool", tool)))
		}
		return nil
	}, gauge)
	if err != nil {
		return nil, fmt.Errorf("failed to register usage callback: %w", err)
	}
	return reg, nil
}

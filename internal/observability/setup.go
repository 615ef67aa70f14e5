package observability

import (
	"context"
	"io"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/ca-srg/nova/internal/types"
)

// Init installs global tracer and meter providers built from cfg. The
// returned Shutdown is never nil, even on error.
func Init(ctx context.Context, cfg *types.Config, logger *log.Logger) (Shutdown, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	oc, err := FromConfig(cfg)
	if err != nil {
		return noopShutdown, err
	}
	res, err := newResource(ctx, oc)
	if err != nil {
		return noopShutdown, err
	}
	tp, err := newTracerProvider(ctx, oc, res)
	if err != nil {
		return noopShutdown, err
	}
	mp, err := newMeterProvider(ctx, oc, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noopShutdown, err
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if oc.Enabled {
		logger.Printf("event=otel_init status=enabled service=%s protocol=%s endpoint=%s sampler=%s", oc.ServiceName, oc.Protocol, oc.Endpoint, oc.Sampler)
	} else {
		logger.Printf("event=otel_init status=disabled")
	}

	shutdown := newShutdown(tp, mp)
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if err != nil {
			logger.Printf("event=otel_shutdown status=error err=%v", err)
		}
		return err
	}, nil
}

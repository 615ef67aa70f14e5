package slackbot

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics keeps in-process counters, logged when the bot stops.
type Metrics struct {
	Requests       atomic.Int64
	Responses      atomic.Int64
	Errors         atomic.Int64
	RateLimited    atomic.Int64
	TotalLatencyNs atomic.Int64
}

func (m *Metrics) RecordRequest() { m.Requests.Add(1) }
func (m *Metrics) RecordResponse(d time.Duration) {
	m.Responses.Add(1)
	m.TotalLatencyNs.Add(d.Nanoseconds())
}
func (m *Metrics) RecordError()       { m.Errors.Add(1) }
func (m *Metrics) RecordRateLimited() { m.RateLimited.Add(1) }

// AverageLatency is the mean handling time of successful requests.
func (m *Metrics) AverageLatency() time.Duration {
	n := m.Responses.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.TotalLatencyNs.Load() / n)
}

// eventInstruments are the OTel instruments for handled Slack events,
// labelled by event kind (mention, thread_reply, direct_message,
// slash_command).
type eventInstruments struct {
	handled metric.Int64Counter
	failed  metric.Int64Counter
	latency metric.Float64Histogram
}

var (
	instrumentsOnce sync.Once
	instruments     eventInstruments
)

func slackInstruments() *eventInstruments {
	instrumentsOnce.Do(func() {
		meter := otel.Meter("nova/slackbot")
		var err error
		if instruments.handled, err = meter.Int64Counter("nova.slack.events.total",
			metric.WithDescription("Slack events handled, by kind")); err != nil {
			log.Printf("observability: failed to create slack event counter: %v", err)
		}
		if instruments.failed, err = meter.Int64Counter("nova.slack.errors.total",
			metric.WithDescription("Slack events whose handling returned an error")); err != nil {
			log.Printf("observability: failed to create slack error counter: %v", err)
		}
		if instruments.latency, err = meter.Float64Histogram("nova.slack.handle_time",
			metric.WithDescription("Time from dequeuing a Slack event to its last reply"),
			metric.WithUnit("ms")); err != nil {
			log.Printf("observability: failed to create slack latency histogram: %v", err)
		}
	})
	return &instruments
}

func recordSlackMetrics(ctx context.Context, kind string, d time.Duration, failed bool) {
	in := slackInstruments()
	attrs := metric.WithAttributes(attribute.String("slack.event", kind))
	if in.handled != nil {
		in.handled.Add(ctx, 1, attrs)
	}
	if in.latency != nil {
		in.latency.Record(ctx, float64(d.Milliseconds()), attrs)
	}
	if failed && in.failed != nil {
		in.failed.Add(ctx, 1, attrs)
	}
}

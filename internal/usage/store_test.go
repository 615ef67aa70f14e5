package usage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "usage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "usage.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestStore_RecordAndQuery(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	day := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return day })
	require.NoError(t, s.Record(ctx, "plan"))
	require.NoError(t, s.Record(ctx, "plan"))
	require.NoError(t, s.Record(ctx, "monthly-review"))

	day = day.AddDate(0, 0, 1)
	require.NoError(t, s.Record(ctx, "plan"))

	totals, err := s.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"plan": 3, "monthly-review": 1}, totals)

	today, err := s.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"plan": 1}, today)

	n, err := s.CountOn(ctx, "plan", "2025-12-01")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	n, err = s.CountOn(ctx, "influencer-trend", "2025-12-01")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRegisterGauge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, s.Record(ctx, "plan"))
	require.NoError(t, s.Record(ctx, "plan"))
	require.NoError(t, s.Record(ctx, "analyse-influencer"))

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	defer func() {
		otel.SetMeterProvider(prev)
		_ = provider.Shutdown(ctx)
	}()

	reg, err := RegisterGauge(s)
	require.NoError(t, err)
	defer reg.Unregister()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "nova.tool.invocations.total" {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			require.True(t, ok, "unexpected data type %T", m.Data)
			for _, dp := range gauge.DataPoints {
				tool, _ := dp.Attributes.Value("tool")
				got[tool.AsString()] = dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"plan": 2, "analyse-influencer": 1}, got)
}

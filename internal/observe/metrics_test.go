package observe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestRecordSessionEnded(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSessionEnded(ctx, OutcomeCompleted, 0.8, 5)
	m.RecordSessionEnded(ctx, OutcomeSuperseded, 0.3, 1.2)

	rm := collect(t, reader)

	ended := findMetric(rm, "laughmeter.sessions.ended")
	require.NotNil(t, ended)
	sum, ok := ended.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)
	for _, dp := range sum.DataPoints {
		assert.Equal(t, int64(1), dp.Value)
	}

	score := findMetric(rm, "laughmeter.session.score")
	require.NotNil(t, score)
	hist, ok := score.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count, "only completed sessions record a score")
	assert.InDelta(t, 0.8, hist.DataPoints[0].Sum, 1e-9)
}

func TestRecordStale(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordStale(context.Background(), "sample")
	m.RecordStale(context.Background(), "sample")

	stale := findMetric(collect(t, reader), "laughmeter.callbacks.stale")
	require.NotNil(t, stale)
	sum := stale.Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
	kind, ok := sum.DataPoints[0].Attributes.Value(attribute.Key("kind"))
	require.True(t, ok)
	assert.Equal(t, "sample", kind.AsString())
}

func TestNoop(t *testing.T) {
	m := Noop()
	assert.NotPanics(t, func() {
		m.RecordSessionEnded(context.Background(), OutcomeFailed, 0, 0)
		m.SamplesProcessed.Add(context.Background(), 1)
	})
}

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFetchDurationView(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithView(fetchDurationView()),
	)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m := mp.Meter("test")
	h, err := m.Float64Histogram(fetchDurationMetric)
	require.NoError(t, err)
	h.Record(context.Background(), 45000)

	other, err := m.Float64Histogram("repofetch.other")
	require.NoError(t, err)
	other.Record(context.Background(), 1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	bounds := map[string][]float64{}
	for _, md := range rm.ScopeMetrics[0].Metrics {
		hist, ok := md.Data.(metricdata.Histogram[float64])
		require.True(t, ok, md.Name)
		require.Len(t, hist.DataPoints, 1)
		bounds[md.Name] = hist.DataPoints[0].Bounds
	}

	assert.Equal(t, fetchDurationBuckets, bounds[fetchDurationMetric])
	assert.NotEqual(t, fetchDurationBuckets, bounds["repofetch.other"])
}

package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	domain "github.com/donaldgifford/amul-stock-tracker/pkg/types"
)

// collectSums reads every int64 counter from reader, keyed by instrument name.
func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					out[m.Name] += int64(dp.Count)
				}
			}
		}
	}
	return out
}

func TestRunCheck_RecordsOTelInstruments(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	eng, deps := newTestEngine(t, WithMeterProvider(mp))

	deps.catalog.EXPECT().Fetch(mock.Anything, testPincode).
		Return(snapshot([]string{"a", "b"}), nil).Once()
	deps.store.EXPECT().Load(mock.Anything).Return(domain.StatusMap{}, nil).Once()
	deps.store.EXPECT().Save(mock.Anything, mock.Anything).Return(nil).Once()
	deps.notifier.EXPECT().SendAlert(mock.Anything, productIs("a")).Return(nil).Once()
	deps.notifier.EXPECT().SendAlert(mock.Anything, productIs("b")).
		Return(errors.New("ntfy returned 500")).Once()

	_, err := eng.RunCheck(context.Background())
	require.NoError(t, err)

	got := collectSums(t, reader)
	assert.Equal(t, int64(1), got["ast.checks"])
	assert.Equal(t, int64(1), got["ast.check.duration"])
	assert.Equal(t, int64(1), got["ast.alerts"])
	assert.Equal(t, int64(1), got["ast.notification.failures"])
	assert.Zero(t, got["ast.check.failures"])
}

func TestRunCheck_RecordsOTelFailureStage(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	eng, deps := newTestEngine(t, WithMeterProvider(mp))
	deps.catalog.EXPECT().Fetch(mock.Anything, testPincode).
		Return(nil, errors.New("storefront returned 503")).Once()

	_, err := eng.RunCheck(context.Background())
	require.Error(t, err)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var stage string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "ast.check.failures" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			v, _ := sum.DataPoints[0].Attributes.Value("stage")
			stage = v.AsString()
		}
	}
	assert.Equal(t, "fetch", stage)
}

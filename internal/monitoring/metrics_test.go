//nolint:testpackage // requires internal access to unexported types and functions
package monitoring

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	t.Run("success", func(t *testing.T) {
		err := m.RecordOperation("collect", func() (int, error) { return 42, nil })
		require.NoError(t, err)
		assert.InDelta(t, 1, testutil.ToFloat64(m.queries.WithLabelValues("collect", StatusSuccess)), 0)
		assert.InDelta(t, 42, testutil.ToFloat64(m.rowsProduced), 0)
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		err := m.RecordOperation("fetch", func() (int, error) { return 10, boom })
		require.ErrorIs(t, err, boom)
		assert.InDelta(t, 1, testutil.ToFloat64(m.queries.WithLabelValues("fetch", StatusError)), 0)
		assert.InDelta(t, 42, testutil.ToFloat64(m.rowsProduced), 0)
	})

	t.Run("duration observed for every run", func(t *testing.T) {
		assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
	})
}

func TestMetricsRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.AddSinkBytes("parquet", 128)
	m.AddSinkBytes("parquet", 72)

	assert.InDelta(t, 200, testutil.ToFloat64(m.sinkBytes.WithLabelValues("parquet")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "polecat_sink_bytes_total")
	assert.Contains(t, names, "polecat_rows_produced_total")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	calls := 0
	err := m.RecordOperation("collect", func() (int, error) {
		calls++
		return 1, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.NotPanics(t, func() { m.AddSinkBytes("show", 10) })
}

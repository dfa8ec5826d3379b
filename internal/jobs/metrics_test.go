package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("journal:cleanup").End(nil))
	err := m.Track("journal:cleanup").End(errors.New("pg down"))
	require.EqualError(t, err, "pg down")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("journal:cleanup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("journal:cleanup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("journal:cleanup")))
}

func TestStaleAndPurged(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.SetStale("offload", 3)
	m.SetStale("offload", 1)
	m.AddPurged(12)
	m.AddPurged(-4)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.stale.WithLabelValues("offload")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.purged))
}

func TestNilMetricsTrackerPassesErrorThrough(t *testing.T) {
	var m *Metrics
	want := errors.New("boom")
	assert.Equal(t, want, m.Track("x").End(want))
	m.SetStale("shift", 2)
}

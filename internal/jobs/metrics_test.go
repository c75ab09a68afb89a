package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("analytics:warmup").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("analytics:warmup").End(boom), boom)
	m.AddWarmed(3)
	m.AddWarmed(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("analytics:warmup", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("analytics:warmup")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.warmed))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.AddWarmed(1)
}

package analytics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the analytics service.
type Metrics struct {
	cacheLookups *prometheus.CounterVec
	pipelineRuns *prometheus.HistogramVec
}

// NewMetrics registers the analytics collectors against registerer. When the
// registerer is nil the collectors are created but not registered.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vendorpulse_analytics_cache_lookups_total",
			Help: "Analytics cache lookups by view and result.",
		}, []string{"view", "result"}),
		pipelineRuns: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vendorpulse_analytics_pipeline_duration_seconds",
			Help:    "Aggregation pipeline latency by pipeline and outcome.",
			Buckets: prometheus.DefBuckets,
		}, []string{"pipeline", "status"}),
	}
	if registerer != nil {
		registerer.MustRegister(m.cacheLookups, m.pipelineRuns)
	}
	return m
}

func (m *Metrics) hit(view string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(view, "hit").Inc()
}

func (m *Metrics) miss(view string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(view, "miss").Inc()
}

func (m *Metrics) observePipeline(name string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.pipelineRuns.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
}

// Package metrics holds the Prometheus collectors of the dashboard.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	runsCreated   prometheus.Counter
	runsDeleted   prometheus.Counter
	records       *prometheus.CounterVec
	timingEntries prometheus.Counter
	opDuration    *prometheus.HistogramVec
	opErrors      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_runs_created_total",
			Help: "Total runs created",
		}),
		runsDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_runs_deleted_total",
			Help: "Total runs deleted",
		}),
		records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_records_appended_total",
			Help: "Total sequenced records appended by stream",
		}, []string{"stream"}),
		timingEntries: f.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_timing_entries_pushed_total",
			Help: "Total timing entries pushed",
		}),
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_storage_op_duration_seconds",
			Help:    "Storage operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}, []string{"op"}),
		opErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_storage_op_errors_total",
			Help: "Total failed storage operations",
		}, []string{"op"}),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunCreated counts a created run.
func (m *Metrics) RunCreated() { m.runsCreated.Inc() }

// RunDeleted counts a deleted run.
func (m *Metrics) RunDeleted() { m.runsDeleted.Inc() }

// RecordAppended counts one appended record of stream.
func (m *Metrics) RecordAppended(stream string) { m.records.WithLabelValues(stream).Inc() }

// TimingPushed counts pushed timing entries.
func (m *Metrics) TimingPushed(n int) { m.timingEntries.Add(float64(n)) }

// Observe records the duration of a storage op and counts it as failed when
// err is non-nil.
func (m *Metrics) Observe(op string, start time.Time, err error) {
	m.opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		m.opErrors.WithLabelValues(op).Inc()
	}
}

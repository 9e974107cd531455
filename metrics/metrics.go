// Package metrics exposes Prometheus counters for the registry pipelines.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "registry"

// Metrics groups the service's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ingestionRows *prometheus.CounterVec
	submissions   *prometheus.CounterVec
	reconciles    *prometheus.CounterVec
	quotaDenials  *prometheus.CounterVec
	viewRecords   prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ingestionRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_rows_total",
			Help:      "Bulk import rows by outcome bucket.",
		}, []string{"bucket"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Single submissions by classified status.",
		}, []string{"status"}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_runs_total",
			Help:      "Reconciler refreshes by result.",
		}, []string{"result"}),
		quotaDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_denials_total",
			Help:      "Submissions refused or truncated by trust tier.",
		}, []string{"tier"}),
		viewRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_records",
			Help:      "Records held in the last reconciled snapshot.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingestionRows, m.submissions, m.reconciles, m.quotaDenials, m.viewRecords,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry for tests and exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) IngestionRows(bucket string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ingestionRows.WithLabelValues(bucket).Add(float64(n))
}

func (m *Metrics) Submission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}

func (m *Metrics) Reconcile(ok bool, records int) {
	if m == nil {
		return
	}
	if !ok {
		m.reconciles.WithLabelValues("error").Inc()
		return
	}
	m.reconciles.WithLabelValues("ok").Inc()
	m.viewRecords.Set(float64(records))
}

func (m *Metrics) QuotaDenied(tier string) {
	if m == nil {
		return
	}
	m.quotaDenials.WithLabelValues(tier).Inc()
}

// Package metrics exposes pagination counters and latencies to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	jobs    *prometheus.CounterVec
	pages   prometheus.Counter
	splits  prometheus.Counter
	items   prometheus.Counter
	diags   prometheus.Counter
	phase   *prometheus.HistogramVec
	queued  prometheus.Gauge
	retries prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "boxflow",
			Name:      "jobs_total",
			Help:      "Pagination jobs by final status.",
		}, []string{"status"}),
		pages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxflow",
			Name:      "pages_total",
			Help:      "Pages produced.",
		}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxflow",
			Name:      "splits_total",
			Help:      "Content divisions across boxes.",
		}),
		items: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxflow",
			Name:      "content_items_total",
			Help:      "Content items flowed.",
		}),
		diags: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxflow",
			Name:      "diagnostics_total",
			Help:      "Unexpected nodes reported by the fit check.",
		}),
		phase: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "boxflow",
			Name:      "phase_duration_seconds",
			Help:      "Time spent per job phase.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 30},
		}, []string{"phase"}),
		queued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "boxflow",
			Name:      "queue_depth",
			Help:      "Jobs waiting for a worker.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "boxflow",
			Name:      "store_retries_total",
			Help:      "Retried result store writes.",
		}),
	}
	m.reg = prometheus.NewRegistry()
	m.reg.MustRegister(
		m.jobs, m.pages, m.splits, m.items, m.diags, m.phase, m.queued, m.retries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRun records the outcome of one finished flow run.
func (m *Metrics) ObserveRun(items, pages, splits, diagnostics int) {
	m.items.Add(float64(items))
	m.pages.Add(float64(pages))
	m.splits.Add(float64(splits))
	m.diags.Add(float64(diagnostics))
}

// ObserveJob counts a job reaching a terminal status.
func (m *Metrics) ObserveJob(status string) {
	m.jobs.WithLabelValues(status).Inc()
}

// ObservePhase records how long a job phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	m.phase.WithLabelValues(phase).Observe(d.Seconds())
}

// SetQueueDepth reports the number of queued jobs.
func (m *Metrics) SetQueueDepth(n int) {
	m.queued.Set(float64(n))
}

// IncRetry counts one retried store write.
func (m *Metrics) IncRetry() {
	m.retries.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Package metrics exposes the termscape Prometheus collectors. Each Metrics
// value owns its own registry so tests and embedded servers never collide on
// the global default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "termscape"

// DefaultBuckets are the duration buckets (in seconds) for stage latencies.
var DefaultBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// Metrics holds the collectors updated by the fetcher, the pipeline and the
// stream hub.
type Metrics struct {
	reg *prometheus.Registry

	fetches    *prometheus.CounterVec
	fetchTime  prometheus.Histogram
	placements *prometheus.CounterVec
	populates  *prometheus.CounterVec
	stages     *prometheus.HistogramVec
	clients    prometheus.Gauge
}

// New creates a Metrics with every collector registered. withRuntime adds
// the Go runtime and process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetches_total",
			Help:      "Corpus fetches by outcome.",
		}, []string{"outcome"}),
		fetchTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of corpus fetches including retries.",
			Buckets:   DefaultBuckets,
		}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "placements_total",
			Help:      "Placement instructions emitted by category.",
		}, []string{"category"}),
		populates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "populates_total",
			Help:      "Pipeline runs by result.",
		}, []string{"result"}),
		stages: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of pipeline stages.",
			Buckets:   DefaultBuckets,
		}, []string{"stage"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "stream_clients",
			Help:      "Connected websocket clients.",
		}),
	}
	m.reg.MustRegister(m.fetches, m.fetchTime, m.placements, m.populates, m.stages, m.clients)
	if withRuntime {
		m.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// ObserveFetch records one fetch. Its signature matches the fetcher's
// OnFetch hook.
func (m *Metrics) ObserveFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(outcome).Inc()
	m.fetchTime.Observe(d.Seconds())
}

// AddPlacements counts n instructions for category.
func (m *Metrics) AddPlacements(category string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.placements.WithLabelValues(category).Add(float64(n))
}

// ObservePopulate counts one pipeline run.
func (m *Metrics) ObservePopulate(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.populates.WithLabelValues(result).Inc()
}

// Since observes the time elapsed since start for stage.
func (m *Metrics) Since(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stages.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// ClientConnected and ClientDisconnected track the websocket client gauge.
func (m *Metrics) ClientConnected() {
	if m != nil {
		m.clients.Inc()
	}
}

func (m *Metrics) ClientDisconnected() {
	if m != nil {
		m.clients.Dec()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

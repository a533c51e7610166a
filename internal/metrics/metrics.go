// Package metrics exposes Prometheus instruments for the scoring service.
// Every method is safe on a nil *Metrics so collaborators can run without
// instrumentation in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harrier"

// Metrics holds the application instruments.
type Metrics struct {
	registry *prometheus.Registry

	AssessmentsTotal  *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	ScenarioRunsTotal *prometheus.CounterVec
	CacheLookupsTotal *prometheus.CounterVec
	AlertsTotal       prometheus.Counter
}

// New registers the instruments on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AssessmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assessments_total",
			Help:      "Scored shipments by risk level and trade region.",
		}, []string{"level", "region"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Latency of each pipeline stage.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"stage"}),
		ScenarioRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenario_runs_total",
			Help:      "Simulations by source (adhoc, preset, stored).",
		}, []string{"source"}),
		CacheLookupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Assessment cache lookups by result.",
		}, []string{"result"}),
		AlertsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Critical assessments published as alerts.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveAssessment counts one scored shipment.
func (m *Metrics) ObserveAssessment(level, region string) {
	if m == nil {
		return
	}
	m.AssessmentsTotal.WithLabelValues(level, region).Inc()
}

// ObserveStage records a stage latency.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveScenarioRun counts one simulation.
func (m *Metrics) ObserveScenarioRun(source string) {
	if m == nil {
		return
	}
	m.ScenarioRunsTotal.WithLabelValues(source).Inc()
}

// ObserveCacheLookup counts a cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveAlert counts one published alert.
func (m *Metrics) ObserveAlert() {
	if m == nil {
		return
	}
	m.AlertsTotal.Inc()
}

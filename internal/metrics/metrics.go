// Package metrics exposes Prometheus collectors for profile generation.
// A Collector plugs into the orchestrator as a progress publisher, a retry
// hook and an outcome observer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dusk-indust/profilegen/internal/orchestrator"
)

const namespace = "profilegen"

// Collector records section, retry and generation metrics on its own
// registry.
type Collector struct {
	registry *prometheus.Registry

	sections    *prometheus.CounterVec
	retries     *prometheus.CounterVec
	backoff     prometheus.Histogram
	generations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	generated   prometheus.Histogram
}

// New creates a Collector with a fresh registry. Go runtime and process
// collectors are registered alongside.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_events_total",
			Help:      "Section progress events by section and status.",
		}, []string{"section", "status"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_retries_total",
			Help:      "Retries scheduled per section.",
		}, []string{"section"}),
		backoff: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_backoff_seconds",
			Help:      "Backoff delay chosen before a retry.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Finished generation calls by mode and result.",
		}, []string{"mode", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of successful generation calls.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"mode"}),
		generated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_section_ratio",
			Help:      "Generated over requested sections per successful call.",
			Buckets:   []float64{0, 0.25, 0.5, 0.75, 0.9, 1},
		}),
	}
	c.registry.MustRegister(
		c.sections, c.retries, c.backoff, c.generations, c.duration, c.generated,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Publish counts a progress event.
func (c *Collector) Publish(ev orchestrator.ProgressEvent) {
	c.sections.WithLabelValues(ev.SectionName, string(ev.Status)).Inc()
}

// OnRetry matches orchestrator.RetryHook.
func (c *Collector) OnRetry(section string, _ int, _ error, delay time.Duration) {
	c.retries.WithLabelValues(section).Inc()
	c.backoff.Observe(delay.Seconds())
}

// ObserveOutcome records a finished generation call.
func (c *Collector) ObserveOutcome(mode string, o orchestrator.Outcome) {
	if !o.OK() {
		c.generations.WithLabelValues(mode, "failure").Inc()
		return
	}
	c.generations.WithLabelValues(mode, "success").Inc()
	c.duration.WithLabelValues(mode).Observe(o.Success.DurationSeconds())
	if o.Success.SectionsRequested > 0 {
		c.generated.Observe(float64(o.Success.SectionsGenerated) / float64(o.Success.SectionsRequested))
	}
}

var (
	_ orchestrator.Publisher       = (*Collector)(nil)
	_ orchestrator.OutcomeObserver = (*Collector)(nil)
	_ orchestrator.RetryHook       = (*Collector)(nil).OnRetry
)

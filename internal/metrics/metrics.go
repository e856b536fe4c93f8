// Package metrics exposes console activity as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/flatval/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one console instance on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	Evaluations   *prometheus.CounterVec
	EvalDuration  prometheus.Histogram
	RenderFaults  prometheus.Counter
	HistoryClears prometheus.Counter
	ActiveStreams prometheus.Gauge
}

// New creates and registers the collectors, plus the Go runtime and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flatval_evaluations_total",
				Help: "Total number of finished evaluations",
			},
			[]string{"status", "error_name"},
		),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flatval_evaluation_duration_seconds",
			Help:    "Duration of evaluations, including the evaluator round trip",
			Buckets: prometheus.DefBuckets,
		}),
		RenderFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flatval_render_faults_total",
			Help: "Total number of entries that could not be rendered",
		}),
		HistoryClears: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flatval_history_clears_total",
			Help: "Total number of cleared session histories",
		}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flatval_active_streams",
			Help: "Number of connected event streams",
		}),
	}
	m.registry.MustRegister(
		m.Evaluations,
		m.EvalDuration,
		m.RenderFaults,
		m.HistoryClears,
		m.ActiveStreams,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks records lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEntryDone: func(_ context.Context, e *domain.EntryEvent) {
			name := ""
			if e.Entry.Error != nil {
				name = e.Entry.Error.Name
			}
			m.Evaluations.WithLabelValues(string(e.Entry.Status), name).Inc()
			m.EvalDuration.Observe(e.Duration.Seconds())
		},
		OnClear: func(context.Context, *domain.ClearEvent) {
			m.HistoryClears.Inc()
		},
		OnRenderFault: func(context.Context, *domain.FaultEvent) {
			m.RenderFaults.Inc()
		},
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

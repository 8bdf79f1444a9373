package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is
// valid and records nothing, which keeps components usable in tests.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal      *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	refreshTotal    *prometheus.CounterVec
	refreshDuration prometheus.Summary
	eventsServed    prometheus.Gauge
	attemptTotal    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.fetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hongbao",
		Name:      "source_fetch_total",
		Help:      "Number of source feed fetches by engine and status",
	}, []string{"engine", "status"})
	m.fetchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hongbao",
		Name:      "source_fetch_duration_seconds",
		Help:      "Time spent fetching a single source feed",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
	}, []string{"engine"})
	m.refreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hongbao",
		Name:      "aggregation_refresh_total",
		Help:      "Number of aggregation refreshes by outcome",
	}, []string{"outcome"})
	m.refreshDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "hongbao",
		Name:      "aggregation_refresh_duration_seconds",
		Help:      "Time spent computing an aggregation snapshot",
	})
	m.eventsServed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hongbao",
		Name:      "aggregation_events",
		Help:      "Number of events in the latest snapshot",
	})
	m.attemptTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hongbao",
		Name:      "completion_attempts_total",
		Help:      "Number of LLM completion attempts by provider, model and status",
	}, []string{"provider", "model", "status"})

	m.registry.MustRegister(
		m.fetchTotal, m.fetchDuration,
		m.refreshTotal, m.refreshDuration, m.eventsServed,
		m.attemptTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveFetch(engine string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(engine, status(ok)).Inc()
	m.fetchDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveRefresh(ok bool, events int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(status(ok)).Inc()
	m.refreshDuration.Observe(elapsed.Seconds())
	if ok {
		m.eventsServed.Set(float64(events))
	}
}

func (m *Metrics) ObserveAttempt(provider, model string, ok bool) {
	if m == nil {
		return
	}
	m.attemptTotal.WithLabelValues(provider, model, status(ok)).Inc()
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

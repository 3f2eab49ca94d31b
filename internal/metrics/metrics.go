// Package metrics defines the Prometheus collectors for the search session
// and its HTTP surface, and exposes a handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Search outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeZero     = "zero"
	OutcomeBuffered = "buffered"
	OutcomeError    = "error"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal       *prometheus.CounterVec
	SearchDuration      prometheus.Histogram
	SupersededTotal     prometheus.Counter
	IndexLoadsTotal     *prometheus.CounterVec
	IndexDocuments      prometheus.Gauge
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg. A nil reg gets a
// fresh private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		SearchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiori_searches_total",
				Help: "Total searches by outcome (hit, zero, buffered, error).",
			},
			[]string{"outcome"},
		),
		SearchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shiori_search_duration_seconds",
				Help:    "Time spent matching, scoring and ranking a query.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		SupersededTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "shiori_buffered_superseded_total",
				Help: "Buffered searches replaced by a later search before the index loaded.",
			},
		),
		IndexLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiori_index_loads_total",
				Help: "Index load attempts by result (success, failure).",
			},
			[]string{"result"},
		),
		IndexDocuments: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "shiori_index_documents",
				Help: "Number of documents in the loaded index.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shiori_http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shiori_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.SearchesTotal,
		m.SearchDuration,
		m.SupersededTotal,
		m.IndexLoadsTotal,
		m.IndexDocuments,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// ObserveSearch counts a search and, unless it was buffered, its duration.
func (m *Metrics) ObserveSearch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeBuffered {
		m.SearchDuration.Observe(d.Seconds())
	}
}

// Superseded counts a buffered search that was overwritten.
func (m *Metrics) Superseded() {
	if m == nil {
		return
	}
	m.SupersededTotal.Inc()
}

// IndexLoaded records a load attempt; documents is only used on success.
func (m *Metrics) IndexLoaded(err error, documents int) {
	if m == nil {
		return
	}
	if err != nil {
		m.IndexLoadsTotal.WithLabelValues("failure").Inc()
		return
	}
	m.IndexLoadsTotal.WithLabelValues("success").Inc()
	m.IndexDocuments.Set(float64(documents))
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler returns the scrape handler for the metrics' registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

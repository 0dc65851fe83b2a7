// Package metrics exposes Prometheus metrics for the HTTP API and the sync.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "readingnook"

// Sync outcomes. Failures use the sync error code instead.
const (
	OutcomeSuccess  = "success"
	OutcomeConflict = "conflict"
)

// Metrics holds every collector on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SyncTotal    *prometheus.CounterVec
	SyncDuration prometheus.Histogram
	SyncedBooks  prometheus.Gauge

	LibraryBooks prometheus.Gauge

	LookupTotal  *prometheus.CounterVec
	SuggestTotal *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		SyncTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "runs_total",
				Help:      "Total number of library syncs by outcome",
			},
			[]string{"outcome"},
		),
		SyncDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "duration_seconds",
				Help:      "Duration of library syncs in seconds",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		SyncedBooks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "sync",
				Name:      "last_imported_books",
				Help:      "Number of books imported by the last successful sync",
			},
		),

		LibraryBooks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "library",
				Name:      "books",
				Help:      "Number of books in the library",
			},
		),

		LookupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "lookup",
				Name:      "requests_total",
				Help:      "Total number of cover lookups by result",
			},
			[]string{"result"},
		),
		SuggestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ai",
				Name:      "suggestions_total",
				Help:      "Total number of AI suggestion requests by result",
			},
			[]string{"result"},
		),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSync records one sync run.
func (m *Metrics) ObserveSync(outcome string, duration time.Duration, imported int) {
	if m == nil {
		return
	}
	m.SyncTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSuccess {
		m.SyncDuration.Observe(duration.Seconds())
		m.SyncedBooks.Set(float64(imported))
	}
}

// SetLibrarySize records the current number of books.
func (m *Metrics) SetLibrarySize(n int) {
	if m == nil {
		return
	}
	m.LibraryBooks.Set(float64(n))
}

// ObserveLookup counts one cover lookup.
func (m *Metrics) ObserveLookup(results int) {
	if m == nil {
		return
	}
	m.LookupTotal.WithLabelValues(resultLabel(results == 0)).Inc()
}

// ObserveSuggest counts one AI suggestion request.
func (m *Metrics) ObserveSuggest(empty bool) {
	if m == nil {
		return
	}
	m.SuggestTotal.WithLabelValues(resultLabel(empty)).Inc()
}

func resultLabel(empty bool) string {
	if empty {
		return "empty"
	}
	return "hit"
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

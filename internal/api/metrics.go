package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eugenenazirov/cutlist-optimizer/internal/optimizer"
)

const metricsNamespace = "cutlist"

// Metrics holds the Prometheus collectors for the HTTP API and the optimizer.
// A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	optimizations prometheus.Counter
	boards        *prometheus.CounterVec
	waste         prometheus.Histogram
}

// NewMetrics creates the API collectors and registers them with reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		optimizations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "optimizations_total",
			Help:      "Cut lists optimized.",
		}),
		boards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "boards_recommended_total",
			Help:      "Boards recommended by material.",
		}, []string{"material"}),
		waste: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "waste_percentage",
			Help:      "Overall waste percentage of optimized cut lists.",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.optimizations, m.boards, m.waste)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) observeOptimization(result optimizer.Result) {
	if m == nil {
		return
	}
	m.optimizations.Inc()
	if len(result.BoardUsage) == 0 {
		return
	}
	m.waste.Observe(result.WastePercentage)
	for _, usage := range result.BoardUsage {
		m.boards.WithLabelValues(usage.Material).Add(float64(usage.BoardsNeeded))
	}
}

// middleware records request counts and latency labelled with the matched
// chi route pattern so ids in paths do not explode cardinality.
func (m *Metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

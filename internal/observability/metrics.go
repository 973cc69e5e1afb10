package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jobmetrics "github.com/supermart/supermart/internal/jobs"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	checkouts       *prometheus.CounterVec
	checkoutAmount  prometheus.Counter
	movements       *prometheus.CounterVec
	movedUnits      *prometheus.CounterVec
	jobs            *jobmetrics.Metrics
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_http_requests_total",
		Help: "HTTP requests partitioned by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supermart_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_checkouts_total",
		Help: "Checkout attempts partitioned by outcome.",
	}, []string{"outcome"})
	amount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "supermart_checkout_amount_total",
		Help: "Sum of committed order totals.",
	})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_stock_movements_total",
		Help: "Stock ledger entries written, by entry type.",
	}, []string{"type"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_stock_units_total",
		Help: "Units actually applied to product quantities, by entry type and direction.",
	}, []string{"type", "direction"})
	registry.MustRegister(requests, duration, checkouts, amount, movements, units)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		checkouts:       checkouts,
		checkoutAmount:  amount,
		movements:       movements,
		movedUnits:      units,
		jobs:            jobmetrics.NewMetrics(registry),
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCheckout counts a checkout attempt. amount is only added on success.
func (m *Metrics) ObserveCheckout(outcome string, amount float64) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
	if outcome == "success" && amount > 0 {
		m.checkoutAmount.Add(amount)
	}
}

// ObserveMovement counts a ledger entry and the units it applied.
func (m *Metrics) ObserveMovement(entryType string, applied int) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(entryType).Inc()
	switch {
	case applied > 0:
		m.movedUnits.WithLabelValues(entryType, "in").Add(float64(applied))
	case applied < 0:
		m.movedUnits.WithLabelValues(entryType, "out").Add(float64(-applied))
	}
}

// Jobs returns the job collectors registered on the same registry.
func (m *Metrics) Jobs() *jobmetrics.Metrics {
	if m == nil {
		return nil
	}
	return m.jobs
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

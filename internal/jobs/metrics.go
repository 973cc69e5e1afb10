package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for background jobs.
type Metrics struct {
	runs     *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	drift    prometheus.Gauge
	alerts   *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer. When the
// registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker provides lifecycle instrumentation helpers for a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given job name.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration, success/failure counts and
// returning the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// SetLedgerDrift records how many products disagree with their ledger.
func (m *Metrics) SetLedgerDrift(products int) {
	if m == nil {
		return
	}
	m.drift.Set(float64(products))
}

// AddLowStockAlert counts a delivered low-stock alert for the SKU's state.
func (m *Metrics) AddLowStockAlert(outOfStock bool) {
	if m == nil {
		return
	}
	state := "low"
	if outOfStock {
		state = "out"
	}
	m.alerts.WithLabelValues(state).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_jobs_total",
		Help: "Total job executions partitioned by job name and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "supermart_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "supermart_ledger_drift_products",
		Help: "Products whose quantity differs from the sum of their ledger entries at the last reconcile.",
	})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "supermart_low_stock_alerts_total",
		Help: "Low-stock alerts delivered, by stock state.",
	}, []string{"state"})
	registerer.MustRegister(runs, failures, duration, drift, alerts)
	return &Metrics{runs: runs, failures: failures, duration: duration, drift: drift, alerts: alerts}
}

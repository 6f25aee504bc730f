// Package metrics holds the Prometheus collectors for sync runs, scheduler
// jobs and the status API.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Ingestion runs by provider and terminal status.",
		},
		[]string{"provider", "status"},
	)

	runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ingest_run_duration_seconds",
			Help:    "Ingestion run durations in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"provider"},
	)

	recordsUpserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_records_upserted_total",
			Help: "Records upserted by successful runs.",
		},
		[]string{"provider"},
	)

	jobFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_scheduler_job_failures_total",
			Help: "Scheduled job executions that failed after retries.",
		},
		[]string{"job"},
	)

	jobSkips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_scheduler_job_skips_total",
			Help: "Scheduled firings skipped, by reason.",
		},
		[]string{"job", "reason"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_http_requests_total",
			Help: "Status API requests.",
		},
		[]string{"method", "path", "status"},
	)

	registerOnce sync.Once
)

// Init registers the collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(runsTotal, runDuration, recordsUpserted, jobFailures, jobSkips, httpRequestsTotal)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records a finished ingestion run.
func ObserveRun(provider, status string, elapsed time.Duration, records int64) {
	runsTotal.WithLabelValues(provider, status).Inc()
	runDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	if records > 0 {
		recordsUpserted.WithLabelValues(provider).Add(float64(records))
	}
}

// JobFailed records a scheduled job that exhausted its retries.
func JobFailed(job string) {
	jobFailures.WithLabelValues(job).Inc()
}

// JobSkipped records a firing that did not run.
func JobSkipped(job, reason string) {
	jobSkips.WithLabelValues(job, reason).Inc()
}

// Instrument counts requests served by next. path should be the route
// template, not the raw URL.
func Instrument(path string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(sw.code)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

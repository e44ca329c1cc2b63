// Package metrics exposes Prometheus collectors for the ingestion service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedloom_pipeline_runs_total",
			Help: "Total pipeline runs, labeled by source type and outcome.",
		},
		[]string{"source_type", "status"},
	)

	pipelineRunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedloom_pipeline_run_duration_seconds",
			Help:    "Histogram of pipeline run durations, labeled by source type.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"source_type"},
	)

	articlesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedloom_articles_ingested_total",
			Help: "Total articles returned by pipeline runs, labeled by source type.",
		},
		[]string{"source_type"},
	)

	enrichmentDegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedloom_enrichment_degraded_total",
			Help: "Per-item enrichment failures that degraded instead of aborting, labeled by stage.",
		},
		[]string{"stage"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedloom_cache_lookups_total",
			Help: "Content cache lookups, labeled by result (hit or miss).",
		},
		[]string{"result"},
	)

	fetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedloom_fetch_duration_seconds",
			Help:    "Histogram of per-item content fetch latencies, labeled by mode.",
			Buckets: []float64{0.05, 0.25, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"mode"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedloom_http_requests_total",
			Help: "Total HTTP requests served by the ops API.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedloom_http_request_duration_seconds",
			Help:    "Histogram of ops API request durations.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.5, 1, 5},
		},
		[]string{"method", "route"},
	)
)

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRun records a completed (or failed) pipeline run.
func ObserveRun(sourceType, status string, duration time.Duration) {
	pipelineRunsTotal.WithLabelValues(sourceType, status).Inc()
	pipelineRunDurationSeconds.WithLabelValues(sourceType).Observe(duration.Seconds())
}

// ObserveArticles records articles returned by a run.
func ObserveArticles(sourceType string, count int) {
	if count > 0 {
		articlesIngestedTotal.WithLabelValues(sourceType).Add(float64(count))
	}
}

// ObserveDegrade records a per-item enrichment degradation at the given stage.
func ObserveDegrade(stage string) {
	enrichmentDegradedTotal.WithLabelValues(stage).Inc()
}

// ObserveCacheLookup records a content cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		cacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	cacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveFetch records a per-item content fetch latency. Mode is "static"
// or "rendered".
func ObserveFetch(mode string, duration time.Duration) {
	fetchDurationSeconds.WithLabelValues(mode).Observe(duration.Seconds())
}

// ObserveHTTPRequest records one served ops API request.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

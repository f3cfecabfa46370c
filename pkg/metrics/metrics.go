// Package metrics defines the Prometheus metric collectors used by the
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	RunsTotal              *prometheus.CounterVec
	RunDuration            prometheus.Histogram
	ArticlesExtractedTotal prometheus.Counter
	ArticlesRejectedTotal  prometheus.Counter
	DimensionRowsTotal     *prometheus.CounterVec
	FactRowsLoadedTotal    prometheus.Counter
	StoreLookupsTotal      *prometheus.CounterVec
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	LastRunTimestamp       prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Total pipeline runs by terminal status (success, failure).",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Wall-clock duration of a full pipeline run.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		ArticlesExtractedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "articles_extracted_total",
				Help: "Raw articles fetched from the article source.",
			},
		),
		ArticlesRejectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "articles_rejected_total",
				Help: "Articles dropped during normalization (unparseable timestamp, missing title and url).",
			},
		),
		DimensionRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dimension_rows_total",
				Help: "Dimension rows produced by the star-schema builder, by table and tag (new, existing).",
			},
			[]string{"dimension", "tag"},
		),
		FactRowsLoadedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fact_rows_loaded_total",
				Help: "Fact rows appended to the warehouse.",
			},
		),
		StoreLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_lookups_total",
				Help: "Point lookups issued against the warehouse store, by dimension.",
			},
			[]string{"dimension"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dimension_cache_hits_total",
				Help: "Dimension-key cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dimension_cache_misses_total",
				Help: "Dimension-key cache misses.",
			},
		),
		LastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipeline_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last completed run.",
			},
		),
	}

	prometheus.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.ArticlesExtractedTotal,
		m.ArticlesRejectedTotal,
		m.DimensionRowsTotal,
		m.FactRowsLoadedTotal,
		m.StoreLookupsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.LastRunTimestamp,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

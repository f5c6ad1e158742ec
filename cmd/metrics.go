package main

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "ogc_search"

var (
	solrRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "solr_request_duration_seconds",
			Help:      "Solr request latency by core, handler and outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"core", "handler", "outcome"},
	)

	exportCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_cache_total",
			Help:      "Export cache lookups by dataset and outcome (hit, miss, expired, shared).",
		},
		[]string{"dataset", "outcome"},
	)

	exportSkippedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_skipped_rows_total",
			Help:      "Export rows dropped because they could not be encoded.",
		},
		[]string{"dataset"},
	)

	pageCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "page_cache_total",
			Help:      "Rendered page cache lookups by dataset and outcome.",
		},
		[]string{"dataset", "outcome"},
	)

	exportJanitorRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_janitor_removed_total",
			Help:      "Stale export files removed by the janitor.",
		},
	)
)

func observeSolrRequest(core, handler, outcome string, elapsed time.Duration) {
	solrRequestDuration.WithLabelValues(core, handler, outcome).Observe(elapsed.Seconds())
}

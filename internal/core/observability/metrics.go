// Package observability holds the service's prometheus collectors.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream"},
	)

	storeOpTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Key-value store operations by op and result.",
		},
		[]string{"op", "result"},
	)

	storeOpDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Duration of key-value store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
		[]string{"op"},
	)

	queryScanRanges = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "query_scan_ranges",
			Help:    "Covering ranges scanned per radius query.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	queryCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "query_candidates",
			Help:    "Distinct index candidates per radius query before distance filtering.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	orphanEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orphan_entries_total",
			Help: "Index entries skipped on read because their metadata is missing.",
		},
	)

	orphanWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orphan_writes_total",
			Help: "Items whose metadata write failed after the index write succeeded.",
		},
	)

	geocodeCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_cache_results_total",
			Help: "Geocode cache lookups by outcome.",
		},
		[]string{"outcome"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstreamLatency(upstream string, durationSeconds float64) {
	upstreamLatencySeconds.WithLabelValues(upstream).Observe(durationSeconds)
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOpTotal.WithLabelValues(op, result).Inc()
	storeOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func ObserveQuery(ranges, candidates int) {
	queryScanRanges.Observe(float64(ranges))
	queryCandidates.Observe(float64(candidates))
}

func AddOrphanEntries(n int) {
	if n > 0 {
		orphanEntriesTotal.Add(float64(n))
	}
}

func IncOrphanWrite() { orphanWritesTotal.Inc() }

func IncGeocodeCacheHit()  { geocodeCacheResults.WithLabelValues("hit").Inc() }
func IncGeocodeCacheMiss() { geocodeCacheResults.WithLabelValues("miss").Inc() }

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}

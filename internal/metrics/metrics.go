// Package metrics defines the Prometheus collectors of the bot.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "arcana"

// Upstream storefront metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream requests",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Detail cache hits and misses",
		},
		[]string{"cache", "result"}, // "hit" / "miss"
	)
)

// Search pipeline metrics.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SearchAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_attempts",
			Help:      "Upstream requests issued per search",
			Buckets:   []float64{1, 2, 5, 10, 20, 30},
		},
		[]string{"mode"},
	)

	EnrichDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrich_duration_seconds",
			Help:      "Time to enrich one result set",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			UpstreamRequestsTotal,
			UpstreamRequestDuration,
			CacheLookupsTotal,
			SearchesTotal,
			SearchAttempts,
			EnrichDuration,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

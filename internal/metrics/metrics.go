package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry - отдельный реестр сервиса, отдаётся на /metrics.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "catalog",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "cache_lookups_total",
		Help:      "Catalog cache lookups by kind and result.",
	}, []string{"kind", "result"})

	CatalogModifications = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "catalog",
		Name:      "modifications_total",
		Help:      "Successful catalog modifications.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		CacheLookups,
		CatalogModifications,
	)
}

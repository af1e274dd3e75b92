package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "disaster_catalog"

// Metrics holds the Prometheus collectors for the catalog and account flows.
type Metrics struct {
	// Catalog metrics.
	Searches      *prometheus.CounterVec   // labels: kind={listing,search}, outcome={results,empty,error}
	QueryDuration *prometheus.HistogramVec // labels: kind={listing,search}

	// Account metrics.
	Bookmarks     *prometheus.CounterVec // labels: outcome={saved,duplicate,not_found,error}
	Registrations *prometheus.CounterVec // labels: outcome={created,conflict,error}
	Logins        *prometheus.CounterVec // labels: outcome={success,failure}

	// HTTP metrics.
	HTTPRequests *prometheus.CounterVec   // labels: surface={web,api}, method, status
	HTTPDuration *prometheus.HistogramVec // labels: surface={web,api}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Searches,
		m.QueryDuration,
		m.Bookmarks,
		m.Registrations,
		m.Logins,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so repeated calls from
// tests do not panic with "already registered".
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_queries_total",
			Help:      "Catalog listing and search queries by outcome.",
		}, []string{"kind", "outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_query_duration_seconds",
			Help:      "Duration of a paginated catalog query including the distinct count.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"kind"}),
		Bookmarks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookmarks_total",
			Help:      "Bookmark save attempts by outcome.",
		}, []string{"outcome"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Account registrations by outcome.",
		}, []string{"outcome"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served by surface, method and status code.",
		}, []string{"surface", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by surface.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"surface"}),
	}
}

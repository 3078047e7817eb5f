package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkpress"

var (
	// HTTP
	RequestCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Identity
	RegistrationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	LoginCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	TenantsCreatedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tenants_created_total",
		Help:      "Tenants provisioned during registration",
	})

	CompensationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Registration rollbacks by outcome (clean, failed, retried, swept)",
		},
		[]string{"outcome"},
	)

	TenantCacheCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_cache_lookups_total",
			Help:      "Tenant slug cache lookups by result",
		},
		[]string{"result"},
	)
)

// ObserveRequest records one finished HTTP request. route is the matched
// route pattern, not the raw path, to keep label cardinality bounded.
func ObserveRequest(method, route string, status int, seconds float64) {
	s := strconv.Itoa(status)
	RequestCounter.WithLabelValues(method, route, s).Inc()
	RequestDuration.WithLabelValues(method, route, s).Observe(seconds)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

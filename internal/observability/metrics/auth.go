package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuthRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total number of auth requests",
		},
		[]string{"method", "path"},
	)

	AuthRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auth_requests_in_flight",
			Help: "Number of auth requests currently being processed",
		},
	)

	AuthRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_request_duration_seconds",
			Help:    "Duration of auth requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthenticationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authentications_total",
			Help: "Total number of authenticate calls by outcome",
		},
		[]string{"result"},
	)

	LogoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logouts_total",
			Help: "Total number of logout calls by whether a session was evicted",
		},
		[]string{"evicted"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total number of registration attempts by outcome",
		},
		[]string{"result"},
	)

	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_hits_total",
			Help: "Total number of session cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_cache_misses_total",
			Help: "Total number of session cache misses",
		},
	)

	SessionCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_cache_entries",
			Help: "Number of entries held in the session cache",
		},
		[]string{"backend"},
	)

	SessionCacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_cache_evictions_total",
			Help: "Total number of session cache evictions by reason",
		},
		[]string{"reason"},
	)

	SessionCacheBackendErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_cache_backend_errors_total",
			Help: "Total number of remote session cache failures by operation",
		},
		[]string{"operation"},
	)

	CredentialStoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_store_queries_total",
			Help: "Total number of credential store queries by result",
		},
		[]string{"result"},
	)

	CredentialStoreRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_store_retries_total",
			Help: "Total number of credential store retries after a timeout",
		},
	)

	CredentialStoreSharedCalls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_store_shared_calls_total",
			Help: "Total number of authenticate calls that joined an in-flight store query",
		},
	)

	AccessTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "access_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	JWTValidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jwt_validations_total",
			Help: "Total number of JWT validations",
		},
	)

	JWTValidationsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jwt_validations_failed_total",
			Help: "Total number of failed JWT validations",
		},
	)

	AuthGateRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_gate_rejected_total",
			Help: "Total number of requests rejected by the auth gate",
		},
	)
)

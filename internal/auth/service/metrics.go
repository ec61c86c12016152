package service

import (
	"strconv"

	"github.com/AlibekovAA/session-auth/backend/internal/observability/metrics"
)

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func incrementCacheHit() {
	metrics.SessionCacheHits.Inc()
}

func incrementCacheMiss() {
	metrics.SessionCacheMisses.Inc()
}

func incrementCacheEviction(reason string, n int) {
	if n <= 0 {
		return
	}
	metrics.SessionCacheEvictions.WithLabelValues(reason).Add(float64(n))
}

func setCacheEntries(backend string, n int) {
	metrics.SessionCacheEntries.WithLabelValues(backend).Set(float64(n))
}

func incrementCacheBackendError(operation string) {
	metrics.SessionCacheBackendErrors.WithLabelValues(operation).Inc()
}

func incrementAuthentication(result string) {
	metrics.AuthenticationsTotal.WithLabelValues(result).Inc()
}

func incrementLogout(evicted bool) {
	metrics.LogoutsTotal.WithLabelValues(strconv.FormatBool(evicted)).Inc()
}

func incrementRegistration(result string) {
	metrics.RegistrationsTotal.WithLabelValues(result).Inc()
}

func incrementStoreQuery(result string) {
	metrics.CredentialStoreQueries.WithLabelValues(result).Inc()
}

func incrementStoreRetry() {
	metrics.CredentialStoreRetries.Inc()
}

func incrementSharedCall() {
	metrics.CredentialStoreSharedCalls.Inc()
}

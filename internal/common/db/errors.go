package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/observability/metrics"
)

// ObserveQuery records the duration of a query against backend and, when err
// is non-nil, counts it and wraps it with the operation name. Errors matching
// notFound are returned unchanged and not counted.
func ObserveQuery(backend, operation string, startTime time.Time, err error, notFound ...error) error {
	metrics.DBQueryDurationSeconds.WithLabelValues(backend, operation).Observe(time.Since(startTime).Seconds())

	if err == nil {
		return nil
	}
	for _, nf := range notFound {
		if errors.Is(err, nf) {
			return err
		}
	}

	metrics.DBQueryErrors.WithLabelValues(backend, operation, fmt.Sprintf("%T", err)).Inc()
	return fmt.Errorf("failed to %s: %w", operation, err)
}

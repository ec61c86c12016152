package http

import (
	"context"
	"net/http"

	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
)

// HealthCheck probes one dependency. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

func HealthHandler(log *logger.Logger, checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			WriteErrorEnvelope(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed", nil, "")
			return
		}

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"check":  name,
					"action": "health_check_failed",
				}).Warnf("health check failed: %v", err)
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = "down"
				continue
			}
			body[name] = "up"
		}

		log.Debugf("health check request status=%d", status)
		WriteJSON(w, status, body)
	}
}

package gate

import (
	"context"
	"net/http"

	commonerrors "github.com/AlibekovAA/session-auth/backend/internal/common/errors"
	commonhttp "github.com/AlibekovAA/session-auth/backend/internal/common/http"
	"github.com/AlibekovAA/session-auth/backend/internal/common/jwtverify"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	"github.com/AlibekovAA/session-auth/backend/internal/observability/metrics"
)

// Request is what a gated handler sees. Claims are only meaningful when
// Authenticated is set.
type Request struct {
	Authenticated bool
	Claims        jwtverify.Claims
}

func (r Request) IsAuthenticated() bool {
	return r.Authenticated
}

type Authenticatable interface {
	IsAuthenticated() bool
}

type HandlerFunc[Req Authenticatable, Resp any] func(ctx context.Context, req Req) (Resp, error)

// Wrap returns a handler that runs h only for authenticated requests and
// fails with ErrInvalidCredentials otherwise.
func Wrap[Req Authenticatable, Resp any](h HandlerFunc[Req, Resp]) HandlerFunc[Req, Resp] {
	return func(ctx context.Context, req Req) (Resp, error) {
		if !req.IsAuthenticated() {
			metrics.AuthGateRejected.Inc()
			var zero Resp
			return zero, commonerrors.ErrInvalidCredentials
		}
		return h(ctx, req)
	}
}

// FromHTTP reads the authentication flag set by jwtverify.Middleware.
func FromHTTP(r *http.Request) Request {
	claims, ok := jwtverify.FromContext(r.Context())
	return Request{Authenticated: ok, Claims: claims}
}

// RequireAuth is Wrap for net/http: unauthenticated requests get a 401
// envelope and never reach next.
func RequireAuth(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			serve := Wrap[Request, struct{}](func(ctx context.Context, _ Request) (struct{}, error) {
				next.ServeHTTP(w, r)
				return struct{}{}, nil
			})

			if _, err := serve(r.Context(), FromHTTP(r)); err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "auth_gate_rejected",
				}).Info("unauthenticated request rejected")
				commonhttp.HandleError(w, r, err, log)
			}
		})
	}
}

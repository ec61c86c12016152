package jwtverify

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	commonerrors "github.com/AlibekovAA/session-auth/backend/internal/common/errors"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	"github.com/AlibekovAA/session-auth/backend/internal/observability/metrics"
)

type Claims struct {
	UserID    int64
	Username  string
	TokenID   string
	SessionID string
	ExpiresAt time.Time
}

// SessionChecker confirms that the session a token was issued for is still
// the user's live session.
type SessionChecker interface {
	HasSession(ctx context.Context, userID int64, username, sessionID string) bool
}

type contextKey string

const claimsKey contextKey = "jwt_claims"

// Middleware marks a request authenticated by storing its claims in the
// context. It never rejects: requests without a valid bearer token and a
// live session pass through unmarked and are turned away by the auth gate.
func Middleware(secret string, sessions SessionChecker, log *logger.Logger) func(next http.Handler) http.Handler {
	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !strings.HasPrefix(raw, "Bearer ") {
				log.Warnf("jwt auth skipped path=%s: malformed authorization header", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parseToken(strings.TrimPrefix(raw, "Bearer "), secretBytes)
			if err != nil {
				log.Warnf("jwt auth failed path=%s: %v", r.URL.Path, err)
				next.ServeHTTP(w, r)
				return
			}

			if sessions != nil && !sessions.HasSession(r.Context(), claims.UserID, claims.Username, claims.SessionID) {
				log.WithFields(r.Context(), logger.Fields{
					"user_id": claims.UserID,
					"action":  "jwt_session_gone",
				}).Info("token presented for a session that is no longer active")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func FromContext(ctx context.Context) (Claims, bool) {
	val := ctx.Value(claimsKey)
	claims, ok := val.(Claims)
	return claims, ok
}

func ParseToken(tokenString string, secret []byte) (Claims, error) {
	return parseToken(tokenString, secret)
}

func parseToken(tokenString string, secret []byte) (Claims, error) {
	metrics.JWTValidationsTotal.Inc()

	claims, err := parseClaims(tokenString, secret)
	if err != nil {
		metrics.JWTValidationsFailed.Inc()
	}
	return claims, err
}

func parseClaims(tokenString string, secret []byte) (Claims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, commonerrors.ErrInvalidTokenSigningMethod
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Claims{}, commonerrors.ErrInvalidToken.WithCause(err)
	}
	if !parsed.Valid {
		return Claims{}, commonerrors.ErrInvalidToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, commonerrors.ErrInvalidTokenClaims
	}

	sub, _ := mapClaims["sub"].(string)
	username, _ := mapClaims["usr"].(string)
	sessionID, _ := mapClaims["sid"].(string)
	if sub == "" || username == "" || sessionID == "" {
		return Claims{}, commonerrors.ErrMissingTokenClaims
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return Claims{}, commonerrors.ErrInvalidTokenClaims.WithCause(errors.New("sub is not a user id"))
	}

	claims := Claims{
		UserID:    userID,
		Username:  username,
		SessionID: sessionID,
	}
	claims.TokenID, _ = mapClaims["jti"].(string)
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

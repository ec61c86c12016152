package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcleanup "github.com/AlibekovAA/session-auth/backend/internal/auth/cleanup"
	authhttp "github.com/AlibekovAA/session-auth/backend/internal/auth/http"
	"github.com/AlibekovAA/session-auth/backend/internal/auth/service"
	"github.com/AlibekovAA/session-auth/backend/internal/common/bootstrap"
	"github.com/AlibekovAA/session-auth/backend/internal/common/clock"
	commoncrypto "github.com/AlibekovAA/session-auth/backend/internal/common/crypto"
	commonhttp "github.com/AlibekovAA/session-auth/backend/internal/common/http"
	"github.com/AlibekovAA/session-auth/backend/internal/common/jwtverify"
	"github.com/AlibekovAA/session-auth/backend/internal/common/resilience"
	srv "github.com/AlibekovAA/session-auth/backend/internal/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewAuthApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start auth service: %v\n", err)
		os.Exit(1)
	}
	log := app.Log
	cfg := app.Config

	hasher, err := commoncrypto.NewPasswordHasher(cfg.PasswordHasher)
	if err != nil {
		log.Fatalf("failed to create password hasher: %v", err)
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		Timeout:    cfg.StoreTimeout,
		ResetAfter: cfg.CircuitBreakerReset,
		Name:       "credential_store",
		IsFailure:  service.IsStoreFailure,
		Logger:     log,
	})

	store, err := service.NewDatabaseCredentialStore(app.Database, hasher, breaker, log)
	if err != nil {
		log.Fatalf("failed to create credential store: %v", err)
	}

	authService := service.NewAuthService(app.Cache, store, app.Database, hasher, service.AuthServiceConfig{
		MaxRetries:  cfg.StoreMaxRetries,
		RetryDelay:  cfg.StoreRetryDelay,
		EmailDomain: cfg.EmailDomain,
	}, log)

	tokenIssuer := service.NewTokenIssuer(cfg.JWTSecret, commoncrypto.NewUUIDGenerator(), cfg.AccessTokenTTL, clock.NewRealClock())

	if app.Sweeper != nil {
		go authcleanup.StartSessionCacheCleanup(ctx, app.Sweeper, cfg.SessionCacheSweepInterval, log)
	}

	handler := authhttp.NewHandler(authService, tokenIssuer, authhttp.Config{
		RequestTimeout: cfg.RequestTimeout,
		HealthChecks:   app.HealthChecks,
	}, log)

	mux := http.NewServeMux()
	mux.Handle("/", handler)
	mux.Handle("/metrics", promhttp.Handler())

	rateLimiter := commonhttp.NewStrictRateLimiter()
	rateLimitMiddleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}
			rateLimiter.MiddlewareForPath(path)(next).ServeHTTP(w, r)
		})
	}

	authenticated := jwtverify.Middleware(cfg.JWTSecret, authService, log)(rateLimitMiddleware(mux))
	finalHandler := commonhttp.BuildBaseHandler(log, authenticated)

	server := srv.NewServer(srv.DefaultServerConfig(cfg.HTTPPort), finalHandler)

	shutdownHooks := []srv.ShutdownHook{
		func(ctx context.Context) error {
			log.Infof("auth service: stopping background workers")
			cancel()
			rateLimiter.Stop()
			return nil
		},
		func(ctx context.Context) error {
			log.Infof("auth service: closing backends")
			return app.Close()
		},
	}

	srv.StartWithGracefulShutdownAndHooks(server, log, "auth", shutdownHooks)
}

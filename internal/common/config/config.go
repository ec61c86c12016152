package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/AlibekovAA/session-auth/backend/internal/common/constants"
	commonerrors "github.com/AlibekovAA/session-auth/backend/internal/common/errors"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type AuthConfig struct {
	HTTPPort       string
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	JWTSecret      string
	AccessTokenTTL time.Duration
	RequestTimeout time.Duration
	PasswordHasher string
	EmailDomain    string

	StoreTimeout    time.Duration
	StoreMaxRetries int
	StoreRetryDelay time.Duration

	SessionCacheTTL           time.Duration
	SessionCacheMaxEntries    int
	SessionCacheSweepInterval time.Duration

	CircuitBreakerThreshold int32
	CircuitBreakerReset     time.Duration
}

// LoadAuthConfig reads the environment, after merging a .env file from the
// working directory when one exists. Variables already set win over .env.
func LoadAuthConfig() (AuthConfig, error) {
	_ = godotenv.Load()

	jwtSecret, err := mustEnv("JWT_SECRET")
	if err != nil {
		return AuthConfig{}, err
	}

	if err := validateJWTSecret(jwtSecret); err != nil {
		return AuthConfig{}, err
	}

	driver := strings.ToLower(getEnv("DATABASE_DRIVER", DriverPostgres))

	cfg := AuthConfig{
		HTTPPort:       getEnv("AUTH_HTTP_PORT", constants.DefaultAuthHTTPPort),
		DatabaseDriver: driver,
		SQLitePath:     getEnv("SQLITE_PATH", "var/storage/auth.db"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        getIntEnv("REDIS_DB", 0),
		JWTSecret:      jwtSecret,
		AccessTokenTTL: getDurationEnv("AUTH_ACCESS_TOKEN_TTL", constants.DefaultAccessTokenTTL),
		RequestTimeout: getDurationEnv("AUTH_REQUEST_TIMEOUT", constants.DefaultAuthRequestTimeout),
		PasswordHasher: getEnv("PASSWORD_HASHER", "argon2id"),
		EmailDomain:    getEnv("EMAIL_DOMAIN", constants.DefaultEmailDomain),

		StoreTimeout:    getDurationEnv("AUTH_STORE_TIMEOUT", constants.DefaultStoreTimeout),
		StoreMaxRetries: getIntEnv("AUTH_STORE_MAX_RETRIES", constants.DefaultStoreMaxRetries),
		StoreRetryDelay: getDurationEnv("AUTH_STORE_RETRY_DELAY", constants.DefaultStoreRetryDelay),

		SessionCacheTTL:           getDurationEnv("SESSION_CACHE_TTL", constants.DefaultSessionCacheTTL),
		SessionCacheMaxEntries:    getIntEnv("SESSION_CACHE_MAX_ENTRIES", constants.DefaultSessionCacheMaxEntries),
		SessionCacheSweepInterval: getDurationEnv("SESSION_CACHE_SWEEP_INTERVAL", constants.DefaultSessionCacheSweepInterval),

		CircuitBreakerThreshold: int32(getIntEnv("AUTH_CIRCUIT_BREAKER_THRESHOLD", constants.DefaultCircuitBreakerThreshold)),
		CircuitBreakerReset:     getDurationEnv("AUTH_CIRCUIT_BREAKER_RESET", constants.DefaultCircuitBreakerReset),
	}

	switch driver {
	case DriverPostgres:
		databaseURL, err := mustEnv("DATABASE_URL")
		if err != nil {
			return AuthConfig{}, err
		}
		cfg.DatabaseURL = databaseURL
	case DriverSQLite, DriverMemory:
	default:
		return AuthConfig{}, commonerrors.ErrInvalidConfigValue.WithCause(fmt.Errorf("DATABASE_DRIVER=%q", driver))
	}

	if cfg.StoreMaxRetries < 1 {
		return AuthConfig{}, commonerrors.ErrInvalidConfigValue.WithCause(fmt.Errorf("AUTH_STORE_MAX_RETRIES must be >= 1, got %d", cfg.StoreMaxRetries))
	}

	if cfg.StoreTimeout <= 0 {
		return AuthConfig{}, commonerrors.ErrInvalidConfigValue.WithCause(fmt.Errorf("AUTH_STORE_TIMEOUT must be > 0, got %v", cfg.StoreTimeout))
	}
	if cfg.RequestTimeout > 0 && cfg.StoreTimeout >= cfg.RequestTimeout {
		return AuthConfig{}, commonerrors.ErrInvalidConfigValue.WithCause(fmt.Errorf("AUTH_STORE_TIMEOUT (%v) must be shorter than AUTH_REQUEST_TIMEOUT (%v)", cfg.StoreTimeout, cfg.RequestTimeout))
	}

	if cfg.SessionCacheTTL < 0 || cfg.SessionCacheMaxEntries < 0 {
		return AuthConfig{}, commonerrors.ErrInvalidConfigValue.WithCause(fmt.Errorf("session cache limits must not be negative"))
	}

	return cfg, nil
}

func validateJWTSecret(secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return commonerrors.ErrInvalidJWTSecret.WithCause(fmt.Errorf("got %d bytes", len(secret)))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

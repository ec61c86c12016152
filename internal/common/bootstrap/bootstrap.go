package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/AlibekovAA/session-auth/backend/internal/auth/cleanup"
	"github.com/AlibekovAA/session-auth/backend/internal/auth/service"
	"github.com/AlibekovAA/session-auth/backend/internal/common/config"
	"github.com/AlibekovAA/session-auth/backend/internal/common/db"
	commonhttp "github.com/AlibekovAA/session-auth/backend/internal/common/http"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/session-auth/backend/internal/user/repository"
)

type App struct {
	Log      *logger.Logger
	Config   config.AuthConfig
	Database userrepo.Database
	Cache    service.SessionCache
	// Sweeper is nil when the cache expires entries on its own.
	Sweeper      cleanup.ExpiredDeleter
	HealthChecks map[string]commonhttp.HealthCheck

	redis *redis.Client
}

// NewAuthApp loads configuration and opens the backends it names. Close
// releases them.
func NewAuthApp(ctx context.Context) (*App, error) {
	log, err := initializeLogger("auth")
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	app := &App{
		Log:          log,
		Config:       cfg,
		HealthChecks: make(map[string]commonhttp.HealthCheck),
	}

	database, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	app.Database = database
	app.HealthChecks["database"] = func(ctx context.Context) error {
		_, err := database.Query(ctx, userdomain.QuerySpec{ID: 1, Limit: 1})
		return err
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warnf("redis at %s not reachable yet: %v", cfg.RedisAddr, err)
		}
		app.redis = client
		app.Cache = service.NewRedisSessionCache(client, cfg.SessionCacheTTL, log)
		app.HealthChecks["session_cache"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		log.Infof("session cache: redis at %s (ttl=%v)", cfg.RedisAddr, cfg.SessionCacheTTL)
	} else {
		memory := service.NewMemorySessionCache(service.SessionCacheConfig{
			TTL:        cfg.SessionCacheTTL,
			MaxEntries: cfg.SessionCacheMaxEntries,
		})
		app.Cache = memory
		if cfg.SessionCacheTTL > 0 {
			app.Sweeper = memory
		}
		log.Infof("session cache: memory (ttl=%v, max_entries=%d)", cfg.SessionCacheTTL, cfg.SessionCacheMaxEntries)
	}

	return app, nil
}

func (a *App) Close() error {
	var firstErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Database != nil {
		if err := a.Database.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openDatabase(ctx context.Context, cfg config.AuthConfig, log *logger.Logger) (userrepo.Database, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		database := userrepo.NewPgDatabase(pool, log)
		if err := database.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return database, nil
	case config.DriverSQLite:
		database, err := userrepo.NewSQLiteDatabase(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		log.Infof("database: sqlite at %s", cfg.SQLitePath)
		return database, nil
	case config.DriverMemory:
		log.Warn("database: in-memory, accounts are lost on restart")
		return userrepo.NewMemoryDatabase(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

func initializeLogger(serviceName string) (*logger.Logger, error) {
	return logger.New(os.Getenv("LOG_DIR"), serviceName, os.Getenv("LOG_LEVEL"))
}

package cleanup

import (
	"context"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
)

type ExpiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StartCleanup calls DeleteExpired every interval until ctx is done.
// A non-positive interval returns immediately.
func StartCleanup(ctx context.Context, deleter ExpiredDeleter, interval time.Duration, log *logger.Logger, name string) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := deleter.DeleteExpired(ctx)
			if err != nil {
				log.Errorf("%s cleanup failed: %v", name, err)
				continue
			}
			if deleted > 0 {
				log.Infof("%s cleanup: deleted %d expired entries", name, deleted)
			}
		}
	}
}

func StartSessionCacheCleanup(ctx context.Context, cache ExpiredDeleter, interval time.Duration, log *logger.Logger) {
	StartCleanup(ctx, cache, interval, log, "session cache")
}

package cleanup

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/auth/service"
	"github.com/AlibekovAA/session-auth/backend/internal/common/clock"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

type mockDeleter struct {
	calls             atomic.Int32
	deleteExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *mockDeleter) DeleteExpired(ctx context.Context) (int64, error) {
	m.calls.Add(1)
	if m.deleteExpiredFunc != nil {
		return m.deleteExpiredFunc(ctx)
	}
	return 0, nil
}

func testLogger() *logger.Logger {
	return logger.NewWriter(io.Discard, "test", "info")
}

func runUntilCalled(t *testing.T, deleter *mockDeleter, interval time.Duration, want int32) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		StartCleanup(ctx, deleter, interval, testLogger(), "test")
	}()

	deadline := time.After(2 * time.Second)
	for deleter.calls.Load() < want {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("expected at least %d calls, got %d", want, deleter.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop after cancel")
	}
}

func TestStartCleanup_RunsEveryInterval(t *testing.T) {
	deleter := &mockDeleter{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 5, nil
		},
	}
	runUntilCalled(t, deleter, 5*time.Millisecond, 3)
}

func TestStartCleanup_KeepsRunningAfterError(t *testing.T) {
	deleter := &mockDeleter{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 0, errors.New("cleanup error")
		},
	}
	runUntilCalled(t, deleter, 5*time.Millisecond, 2)
}

func TestStartCleanup_DisabledInterval(t *testing.T) {
	deleter := &mockDeleter{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		StartCleanup(context.Background(), deleter, 0, testLogger(), "test")
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected cleanup with zero interval to return immediately")
	}
	if deleter.calls.Load() != 0 {
		t.Errorf("expected no calls, got %d", deleter.calls.Load())
	}
}

func TestStartSessionCacheCleanup_RemovesExpiredSessions(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cache := service.NewMemorySessionCache(service.SessionCacheConfig{TTL: time.Minute, Clock: clk})
	cache.Put(context.Background(), "alice", userdomain.User{ID: 1, Username: "alice"})
	clk.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go StartSessionCacheCleanup(ctx, cache, 5*time.Millisecond, testLogger())

	deadline := time.After(2 * time.Second)
	for cache.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("expected expired session to be swept, %d entries left", cache.Len())
		case <-time.After(time.Millisecond):
		}
	}
}

package service_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/AlibekovAA/session-auth/backend/internal/auth/service"
	"github.com/AlibekovAA/session-auth/backend/internal/common/crypto"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

type mockCredentialStore struct {
	queryFunc func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error)
	calls     atomic.Int32
}

func (m *mockCredentialStore) Query(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
	m.calls.Add(1)
	if m.queryFunc != nil {
		return m.queryFunc(ctx, creds)
	}
	return userdomain.User{}, service.ErrInvalidCredentials
}

func (m *mockCredentialStore) Calls() int {
	return int(m.calls.Load())
}

type mockDatabase struct {
	queryFunc  func(ctx context.Context, spec userdomain.QuerySpec) ([]userdomain.Account, error)
	createFunc func(ctx context.Context, account userdomain.NewAccount) (userdomain.Account, error)
}

func (m *mockDatabase) Query(ctx context.Context, spec userdomain.QuerySpec) ([]userdomain.Account, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, spec)
	}
	return nil, nil
}

func (m *mockDatabase) Create(ctx context.Context, account userdomain.NewAccount) (userdomain.Account, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, account)
	}
	return userdomain.Account{}, errors.New("create not configured")
}

func (m *mockDatabase) Close() error {
	return nil
}

type mockHasher struct {
	hashFunc    func(password string) (string, error)
	compareFunc func(hash string, password string) error
}

func (m *mockHasher) Hash(password string) (string, error) {
	if m.hashFunc != nil {
		return m.hashFunc(password)
	}
	return "hashed:" + password, nil
}

func (m *mockHasher) Compare(hash string, password string) error {
	if m.compareFunc != nil {
		return m.compareFunc(hash, password)
	}
	if strings.TrimPrefix(hash, "hashed:") != password {
		return crypto.ErrPasswordMismatch
	}
	return nil
}

type mockIDGenerator struct {
	newIDFunc func() (string, error)
}

func (m *mockIDGenerator) NewID() (string, error) {
	if m.newIDFunc != nil {
		return m.newIDFunc()
	}
	return "token-id", nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	return logger.NewWriter(io.Discard, "test", "debug")
}

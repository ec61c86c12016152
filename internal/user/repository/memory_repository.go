package repository

import (
	"context"
	"sync"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

// MemoryDatabase keeps accounts in process memory. Used by the memory driver
// and by tests.
type MemoryDatabase struct {
	mu         sync.RWMutex
	nextID     int64
	byUsername map[string]domain.Account
	byID       map[int64]string
	now        func() time.Time
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		byUsername: make(map[string]domain.Account),
		byID:       make(map[int64]string),
		now:        time.Now,
	}
}

func (r *MemoryDatabase) Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Account, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	username := spec.Username
	if username == "" {
		username = r.byID[spec.ID]
	}

	a, ok := r.byUsername[username]
	if !ok || (spec.ID > 0 && a.ID != spec.ID) {
		return nil, nil
	}
	return []domain.Account{a}, nil
}

func (r *MemoryDatabase) Create(ctx context.Context, account domain.NewAccount) (domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return domain.Account{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[account.Username]; exists {
		return domain.Account{}, ErrUsernameAlreadyExists
	}

	r.nextID++
	created := domain.Account{
		User: domain.User{
			ID:       r.nextID,
			Username: account.Username,
			Email:    account.Email,
		},
		PasswordHash: account.PasswordHash,
		CreatedAt:    r.now(),
	}
	r.byUsername[account.Username] = created
	r.byID[created.ID] = account.Username

	return created, nil
}

func (r *MemoryDatabase) Close() error {
	return nil
}

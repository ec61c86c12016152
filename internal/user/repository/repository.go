package repository

import (
	"context"
	"errors"

	"github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

// Database is the outbound persistence capability the credential store is
// built on.
type Database interface {
	Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Account, error)
	Create(ctx context.Context, account domain.NewAccount) (domain.Account, error)
	Close() error
}

var (
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrEmptyQuery            = errors.New("query spec selects nothing")
)

func validateSpec(spec domain.QuerySpec) error {
	if spec.Username == "" && spec.ID <= 0 {
		return ErrEmptyQuery
	}
	return nil
}

func limitOf(spec domain.QuerySpec) int {
	if spec.Limit <= 0 {
		return 1
	}
	return spec.Limit
}

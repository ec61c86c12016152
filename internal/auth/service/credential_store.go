package service

import (
	"context"
	"errors"

	commoncrypto "github.com/AlibekovAA/session-auth/backend/internal/common/crypto"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	"github.com/AlibekovAA/session-auth/backend/internal/common/resilience"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/session-auth/backend/internal/user/repository"
)

// CredentialStore checks a username/password pair against the system of
// record. Errors are ErrInvalidCredentials, ErrStore or ErrTimeout.
type CredentialStore interface {
	Query(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error)
}

// Used to keep the not-found path as slow as a real comparison.
const timingPadPassword = "timing-pad-password-0"

type DatabaseCredentialStore struct {
	db      userrepo.Database
	hasher  commoncrypto.PasswordHasher
	breaker *resilience.CircuitBreaker
	padHash string
	log     *logger.Logger
}

func NewDatabaseCredentialStore(
	db userrepo.Database,
	hasher commoncrypto.PasswordHasher,
	breaker *resilience.CircuitBreaker,
	log *logger.Logger,
) (*DatabaseCredentialStore, error) {
	padHash, err := hasher.Hash(timingPadPassword)
	if err != nil {
		return nil, err
	}
	return &DatabaseCredentialStore{
		db:      db,
		hasher:  hasher,
		breaker: breaker,
		padHash: padHash,
		log:     log,
	}, nil
}

func (s *DatabaseCredentialStore) Query(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
	var accounts []userdomain.Account
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		accounts, err = s.db.Query(ctx, userdomain.QuerySpec{Username: creds.Username, Limit: 1})
		return err
	})
	if err != nil {
		mapped := mapStoreError(err)
		incrementStoreQuery(storeResult(mapped))
		s.log.WithFields(ctx, logger.Fields{
			"username": creds.Username,
			"action":   "credential_store_query_failed",
		}).Errorf("credential store query failed: %v", err)
		return userdomain.User{}, mapped
	}

	if len(accounts) == 0 {
		_ = s.hasher.Compare(s.padHash, creds.Password)
		incrementStoreQuery("invalid")
		return userdomain.User{}, ErrInvalidCredentials
	}

	account := accounts[0]
	if err := s.hasher.Compare(account.PasswordHash, creds.Password); err != nil {
		if errors.Is(err, commoncrypto.ErrPasswordMismatch) {
			incrementStoreQuery("invalid")
			return userdomain.User{}, ErrInvalidCredentials
		}
		incrementStoreQuery("error")
		s.log.WithFields(ctx, logger.Fields{
			"username": creds.Username,
			"user_id":  account.ID,
			"action":   "credential_store_hash_failed",
		}).Errorf("stored password hash unusable: %v", err)
		return userdomain.User{}, StoreError(err)
	}

	incrementStoreQuery("ok")
	return account.User, nil
}

// IsStoreFailure reports errors that say something about backend health.
// It is meant as the circuit breaker's failure classifier.
func IsStoreFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// mapStoreError folds backend errors into the taxonomy. An open circuit is
// reported as ErrStore with ErrCircuitOpen kept as the cause.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrTimeout), errors.Is(err, ErrStore):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.WithCause(err)
	default:
		return StoreError(err)
	}
}

func storeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

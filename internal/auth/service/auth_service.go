package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AlibekovAA/session-auth/backend/internal/common/constants"
	commoncrypto "github.com/AlibekovAA/session-auth/backend/internal/common/crypto"
	"github.com/AlibekovAA/session-auth/backend/internal/common/db"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
	userrepo "github.com/AlibekovAA/session-auth/backend/internal/user/repository"
)

// Authenticator is the inbound capability offered to callers.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (userdomain.User, error)
	Logout(ctx context.Context, userID int64) error
}

type AuthServiceConfig struct {
	// MaxRetries is the total number of store attempts made when the store
	// times out. Values below 1 mean a single attempt.
	MaxRetries  int
	RetryDelay  time.Duration
	EmailDomain string
	// SessionIDs mints the id a login binds its cache entry to. Nil uses
	// random UUIDs.
	SessionIDs commoncrypto.IDGenerator
}

// Session is the result of a password login: the user and the id of the
// session cache entry that login created.
type Session struct {
	User userdomain.User
	ID   string
}

type AuthService struct {
	cache     SessionCache
	store     CredentialStore
	db        userrepo.Database
	hasher    commoncrypto.PasswordHasher
	validator CredentialValidator
	sessions  commoncrypto.IDGenerator
	retry     db.RetryConfig
	flights   singleflight.Group
	emailHost string
	log       *logger.Logger
}

func NewAuthService(
	cache SessionCache,
	store CredentialStore,
	database userrepo.Database,
	hasher commoncrypto.PasswordHasher,
	config AuthServiceConfig,
	log *logger.Logger,
) *AuthService {
	maxRetries := config.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	emailHost := config.EmailDomain
	if emailHost == "" {
		emailHost = constants.DefaultEmailDomain
	}
	sessionIDs := config.SessionIDs
	if sessionIDs == nil {
		sessionIDs = commoncrypto.NewUUIDGenerator()
	}

	return &AuthService{
		cache:     cache,
		store:     store,
		db:        database,
		hasher:    hasher,
		validator: NewCredentialValidator(),
		sessions:  sessionIDs,
		retry: db.RetryConfig{
			MaxAttempts:  maxRetries,
			InitialDelay: config.RetryDelay,
			MaxDelay:     constants.StoreRetryMaxDelay,
			Multiplier:   2.0,
		},
		emailHost: emailHost,
		log:       log,
	}
}

// Authenticate resolves credentials to a user, serving repeat logins from
// the session cache.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (userdomain.User, error) {
	if username == "" || password == "" {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "authenticate_empty_credentials",
		}).Warn("authenticate rejected: empty username or password")
		incrementAuthentication("invalid")
		return userdomain.User{}, ErrInvalidCredentials
	}

	// A cached session is trusted as is: the password is NOT checked again
	// on a hit, so any password for a cached username succeeds until the
	// entry is logged out or expires.
	if user, ok := s.cache.Get(ctx, username); ok {
		incrementCacheHit()
		incrementAuthentication("cache_hit")
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"user_id":  user.ID,
			"action":   "authenticate_cache_hit",
		}).Debug("authenticate served from session cache")
		return user, nil
	}
	incrementCacheMiss()

	user, err := s.queryStore(ctx, userdomain.Credentials{Username: username, Password: password})
	if err != nil {
		s.logAuthFailure(ctx, username, err)
		return userdomain.User{}, err
	}

	s.cache.Put(ctx, username, user)

	incrementAuthentication("success")
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"user_id":  user.ID,
		"action":   "authenticate_success",
	}).Info("authenticate success")

	return user, nil
}

// Login always verifies the password against the credential store, even
// when the username is cached, and opens a new session for the user. Any
// session the username held before is replaced, so its tokens stop working.
func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	if username == "" || password == "" {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "login_empty_credentials",
		}).Warn("login rejected: empty username or password")
		incrementAuthentication("invalid")
		return Session{}, ErrInvalidCredentials
	}

	user, err := s.queryStore(ctx, userdomain.Credentials{Username: username, Password: password})
	if err != nil {
		s.logAuthFailure(ctx, username, err)
		return Session{}, err
	}

	sessionID, err := s.sessions.NewID()
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": username,
			"action":   "login_session_id_failed",
		}).Errorf("login failed: session id error: %v", err)
		incrementAuthentication("error")
		return Session{}, err
	}
	s.cache.PutSession(ctx, username, user, sessionID)

	incrementAuthentication("login")
	s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"user_id":  user.ID,
		"action":   "login_success",
	}).Info("login success")

	return Session{User: user, ID: sessionID}, nil
}

// queryStore asks the credential store, retrying timeouts. Concurrent
// misses for the same username and password share one flight; the flight
// outlives a caller that gives up, and that caller gets its context error.
func (s *AuthService) queryStore(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
	flightCtx := context.WithoutCancel(ctx)

	ch := s.flights.DoChan(flightKey(creds), func() (any, error) {
		var (
			user     userdomain.User
			attempts int
		)
		err := db.RetryWithBackoff(flightCtx, s.log, s.retry, isTimeout, func(ctx context.Context) error {
			attempts++
			if attempts > 1 {
				incrementStoreRetry()
			}
			u, err := s.store.Query(ctx, creds)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
		if err != nil {
			return userdomain.User{}, mapStoreError(err)
		}
		return user, nil
	})

	select {
	case <-ctx.Done():
		return userdomain.User{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			incrementSharedCall()
		}
		if res.Err != nil {
			return userdomain.User{}, res.Err
		}
		return res.Val.(userdomain.User), nil
	}
}

// Logout drops whatever session is cached for the user. It succeeds when
// nothing was cached.
func (s *AuthService) Logout(ctx context.Context, userID int64) error {
	if userID <= 0 {
		incrementLogout(false)
		return nil
	}

	evicted := s.cache.InvalidateUser(ctx, userID)
	incrementLogout(evicted)
	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"evicted": evicted,
		"action":  "logout",
	}).Info("logout")

	return nil
}

// HasSession reports whether sessionID is still the live session of the
// user under the given username. Logout or a later login ends it.
func (s *AuthService) HasSession(ctx context.Context, userID int64, username, sessionID string) bool {
	return s.cache.HasSession(ctx, username, userID, sessionID)
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (userdomain.User, error) {
	s.log.WithFields(ctx, logger.Fields{
		"username": input.Username,
		"action":   "register_attempt",
	}).Info("register attempt")

	input.Email = strings.TrimSpace(input.Email)
	if err := s.validator.Validate(input); err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_validation_failed",
		}).Warnf("register validation failed: %v", err)
		incrementRegistration("invalid")
		return userdomain.User{}, err
	}

	email := input.Email
	if email == "" {
		email = input.Username + "@" + s.emailHost
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_hash_failed",
		}).Errorf("register failed: password hash error: %v", err)
		incrementRegistration("error")
		return userdomain.User{}, err
	}

	account, err := s.db.Create(ctx, userdomain.NewAccount{
		Username:     input.Username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrUsernameAlreadyExists) {
			s.log.WithFields(ctx, logger.Fields{
				"username": input.Username,
				"action":   "register_username_exists",
			}).Warn("register failed: already exists")
			incrementRegistration("conflict")
			return userdomain.User{}, ErrUsernameTaken
		}
		s.log.WithFields(ctx, logger.Fields{
			"username": input.Username,
			"action":   "register_create_failed",
		}).Errorf("register failed: %v", err)
		incrementRegistration("error")
		return userdomain.User{}, mapStoreError(err)
	}

	incrementRegistration("success")
	s.log.WithFields(ctx, logger.Fields{
		"username": account.Username,
		"user_id":  account.ID,
		"action":   "register_success",
	}).Info("register success")

	return account.User, nil
}

func (s *AuthService) logAuthFailure(ctx context.Context, username string, err error) {
	entry := s.log.WithFields(ctx, logger.Fields{
		"username": username,
		"action":   "authenticate_failed",
	})

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		incrementAuthentication("invalid")
		entry.Warn("authenticate failed: invalid credentials")
	case errors.Is(err, ErrTimeout):
		incrementAuthentication("timeout")
		entry.Errorf("authenticate failed: %v", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		incrementAuthentication("abandoned")
		entry.Warnf("authenticate abandoned by caller: %v", err)
	default:
		incrementAuthentication("error")
		entry.Errorf("authenticate failed: %v", err)
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func flightKey(creds userdomain.Credentials) string {
	sum := sha256.Sum256([]byte(creds.Password))
	return creds.Username + "\x00" + hex.EncodeToString(sum[:])
}

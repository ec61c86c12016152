package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AlibekovAA/session-auth/backend/internal/auth/service"
	"github.com/AlibekovAA/session-auth/backend/internal/common/crypto"
	commonerrors "github.com/AlibekovAA/session-auth/backend/internal/common/errors"
	userdomain "github.com/AlibekovAA/session-auth/backend/internal/user/domain"
	"github.com/AlibekovAA/session-auth/backend/internal/user/repository"
)

type authFixture struct {
	svc   *service.AuthService
	cache *service.MemorySessionCache
	store *mockCredentialStore
	db    *mockDatabase
}

func setupAuthService(t *testing.T) authFixture {
	t.Helper()

	cache := service.NewMemorySessionCache(service.SessionCacheConfig{})
	store := &mockCredentialStore{}
	db := &mockDatabase{}

	svc := service.NewAuthService(cache, store, db, &mockHasher{}, service.AuthServiceConfig{
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, newTestLogger(t))

	return authFixture{svc: svc, cache: cache, store: store, db: db}
}

func storeReturning(user userdomain.User, password string) func(context.Context, userdomain.Credentials) (userdomain.User, error) {
	return func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
		if creds.Username != user.Username || creds.Password != password {
			return userdomain.User{}, service.ErrInvalidCredentials
		}
		return user, nil
	}
}

func TestAuthService_Authenticate_MissPopulatesCache(t *testing.T) {
	f := setupAuthService(t)
	f.store.queryFunc = storeReturning(alice(), "secret1")

	user, err := f.svc.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user != alice() {
		t.Errorf("expected %+v, got %+v", alice(), user)
	}
	if f.store.Calls() != 1 {
		t.Errorf("expected 1 store call, got %d", f.store.Calls())
	}

	cached, ok := f.cache.Get(context.Background(), "alice")
	if !ok || cached != alice() {
		t.Errorf("expected alice in cache, got %+v ok=%v", cached, ok)
	}
}

func TestAuthService_Authenticate_CacheHitSkipsStore(t *testing.T) {
	f := setupAuthService(t)
	f.store.queryFunc = storeReturning(alice(), "secret1")

	first, err := f.svc.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	second, err := f.svc.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if first != second {
		t.Errorf("expected identical users, got %+v and %+v", first, second)
	}
	if f.store.Calls() != 1 {
		t.Errorf("expected store to be called once, got %d", f.store.Calls())
	}
}

// A hit is trusted without re-checking the password.
func TestAuthService_Authenticate_CacheHitIgnoresPassword(t *testing.T) {
	f := setupAuthService(t)
	f.store.queryFunc = storeReturning(alice(), "secret1")

	if _, err := f.svc.Authenticate(context.Background(), "alice", "secret1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	user, err := f.svc.Authenticate(context.Background(), "alice", "not-the-password")
	if err != nil {
		t.Fatalf("expected cached session to be served, got %v", err)
	}
	if user != alice() {
		t.Errorf("expected %+v, got %+v", alice(), user)
	}
	if f.store.Calls() != 1 {
		t.Errorf("expected store to be called once, got %d", f.store.Calls())
	}
}

func TestAuthService_Authenticate_EmptyCredentials(t *testing.T) {
	f := setupAuthService(t)

	cases := []struct{ username, password string }{
		{"", "secret1"},
		{"alice", ""},
		{"", ""},
	}
	for _, tc := range cases {
		_, err := f.svc.Authenticate(context.Background(), tc.username, tc.password)
		if !errors.Is(err, service.ErrInvalidCredentials) {
			t.Errorf("username=%q password=%q: expected ErrInvalidCredentials, got %v", tc.username, tc.password, err)
		}
	}
	if f.store.Calls() != 0 {
		t.Errorf("expected no store calls, got %d", f.store.Calls())
	}
}

func TestAuthService_Authenticate_ErrorsLeaveCacheUnchanged(t *testing.T) {
	backendErr := errors.New("disk on fire")
	cases := []struct {
		name      string
		storeErr  error
		wantErr   error
		wantCalls int
	}{
		{"invalid credentials", service.ErrInvalidCredentials, service.ErrInvalidCredentials, 1},
		{"store error", commonerrors.StoreError(backendErr), service.ErrStore, 1},
		{"raw backend error", backendErr, service.ErrStore, 1},
		{"timeout", service.ErrTimeout, service.ErrTimeout, 3},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setupAuthService(t)
			f.cache.Put(context.Background(), "bob", userdomain.User{ID: 2, Username: "bob"})
			f.store.queryFunc = func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
				return userdomain.User{}, tc.storeErr
			}

			_, err := f.svc.Authenticate(context.Background(), "alice", "secret1")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if f.store.Calls() != tc.wantCalls {
				t.Errorf("expected %d store calls, got %d", tc.wantCalls, f.store.Calls())
			}
			if f.cache.Len() != 1 {
				t.Errorf("expected cache to keep only bob, got %d entries", f.cache.Len())
			}
			if _, ok := f.cache.Get(context.Background(), "alice"); ok {
				t.Error("expected no entry for alice")
			}
		})
	}
}

func TestAuthService_Authenticate_StoreErrorKeepsDetail(t *testing.T) {
	f := setupAuthService(t)
	backendErr := errors.New("replica lag")
	f.store.queryFunc = func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
		return userdomain.User{}, commonerrors.StoreError(backendErr)
	}

	_, err := f.svc.Authenticate(context.Background(), "alice", "secret1")
	if !errors.Is(err, backendErr) {
		t.Errorf("expected detail to be preserved, got %v", err)
	}
}

func TestAuthService_Authenticate_TimeoutThenSuccess(t *testing.T) {
	f := setupAuthService(t)
	f.store.queryFunc = func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
		if f.store.Calls() < 3 {
			return userdomain.User{}, service.ErrTimeout
		}
		return alice(), nil
	}

	user, err := f.svc.Authenticate(context.Background(), "alice", "secret1")
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if user != alice() {
		t.Errorf("expected %+v, got %+v", alice(), user)
	}
	if f.store.Calls() != 3 {
		t.Errorf("expected 3 store calls, got %d", f.store.Calls())
	}
	if f.cache.Len() != 1 {
		t.Errorf("expected one cache entry, got %d", f.cache.Len())
	}
}

func TestAuthService_Authenticate_ParallelColdMisses(t *testing.T) {
	f := setupAuthService(t)
	f.store.queryFunc = func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
		time.Sleep(5 * time.Millisecond)
		return alice(), nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]userdomain.User, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.Authenticate(context.Background(), "alice", "secret1")
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		if results[i] != alice() {
			t.Errorf("call %d: expected %+v, got %+v", i, alice(), results[i])
		}
	}
	if f.cache.Len() != 1 {
		t.Errorf("expected exactly one cache entry, got %d", f.cache.Len())
	}
	if calls := f.store.Calls(); calls < 1 || calls > n {
		t.Errorf("expected between 1 and %d store calls, got %d", n, calls)
	}
}

func TestAuthService_Authenticate_DifferentPasswordsDoNotShareFlight(t *testing.T) {
	f := setupAuthService(t)
	release := make(chan struct{})
	f.store.queryFunc = func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
		<-release
		if creds.Password != "secret1" {
			return userdomain.User{}, service.ErrInvalidCredentials
		}
		return alice(), nil
	}

	var wg sync.WaitGroup
	var goodErr, badErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, goodErr = f.svc.Authenticate(context.Background(), "alice", "secret1")
	}()
	go func() {
		defer wg.Done()
		_, badErr = f.svc.Authenticate(context.Background(), "alice", "guess")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.store.Calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if f.store.Calls() != 2 {
		t.Fatalf("expected separate store calls per password, got %d", f.store.Calls())
	}
	if goodErr != nil {
		t.Errorf("expected correct password to succeed, got %v", goodErr)
	}
	if !errors.Is(badErr, service.ErrInvalidCredentials) {
		t.Errorf("expected wrong password to fail, got %v", badErr)
	}
}

func TestAuthService_Authenticate_CallerCancelledLeavesNoEntry(t *testing.T) {
	f := setupAuthService(t)
	entered := make(chan struct{})
	release := make(chan struct{})
	f.store.queryFunc = func(ctx context.Context, creds userdomain.Credentials) (userdomain.User, error) {
		close(entered)
		<-release
		return alice(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Authenticate(ctx, "alice", "secret1")
		done <- err
	}()

	<-entered
	cancel()
	err := <-done
	close(release)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.cache.Len() != 0 {
		t.Errorf("expected no cache entry, got %d", f.cache.Len())
	}
}

func TestAuthService_Logout(t *testing.T) {
	f := setupAuthService(t)
	f.store.queryFunc = storeReturning(alice(), "secret1")
	ctx := context.Background()

	if _, err := f.svc.Authenticate(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := f.svc.Logout(ctx, alice().ID); err != nil {
		t.Fatalf("expected logout to succeed, got %v", err)
	}
	if f.cache.Len() != 0 {
		t.Errorf("expected empty cache after logout, got %d", f.cache.Len())
	}

	if _, err := f.svc.Authenticate(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.store.Calls() != 2 {
		t.Errorf("expected store to be consulted again after logout, got %d calls", f.store.Calls())
	}
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	f := setupAuthService(t)
	ctx := context.Background()

	for _, id := range []int64{42, 42, 0, -1} {
		if err := f.svc.Logout(ctx, id); err != nil {
			t.Errorf("logout(%d): expected success, got %v", id, err)
		}
	}
}

func TestAuthService_Login_VerifiesPasswordOnCacheHit(t *testing.T) {
	f := setupAuthService(t)
	ctx := context.Background()
	f.store.queryFunc = storeReturning(alice(), "secret1")

	if _, err := f.svc.Login(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	_, err := f.svc.Login(ctx, "alice", "wrong-password")
	if !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if f.store.Calls() != 2 {
		t.Errorf("expected every login to reach the store, got %d calls", f.store.Calls())
	}
}

func TestAuthService_Login_EmptyCredentials(t *testing.T) {
	f := setupAuthService(t)

	for _, creds := range [][2]string{{"", "secret1"}, {"alice", ""}} {
		_, err := f.svc.Login(context.Background(), creds[0], creds[1])
		if !errors.Is(err, service.ErrInvalidCredentials) {
			t.Errorf("login(%q, %q): expected ErrInvalidCredentials, got %v", creds[0], creds[1], err)
		}
	}
	if f.store.Calls() != 0 {
		t.Errorf("expected no store calls, got %d", f.store.Calls())
	}
}

func TestAuthService_HasSession(t *testing.T) {
	f := setupAuthService(t)
	ctx := context.Background()
	f.store.queryFunc = storeReturning(alice(), "secret1")

	session, err := f.svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if session.User != alice() || session.ID == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	if !f.svc.HasSession(ctx, 1, "alice", session.ID) {
		t.Error("expected live session")
	}
	if f.svc.HasSession(ctx, 2, "alice", session.ID) {
		t.Error("expected id mismatch to report no session")
	}
	if f.svc.HasSession(ctx, 1, "alice", "") {
		t.Error("expected empty session id to report no session")
	}
	_ = f.svc.Logout(ctx, 1)
	if f.svc.HasSession(ctx, 1, "alice", session.ID) {
		t.Error("expected no session after logout")
	}
}

func TestAuthService_HasSession_EndsWithNextLogin(t *testing.T) {
	f := setupAuthService(t)
	ctx := context.Background()
	f.store.queryFunc = storeReturning(alice(), "secret1")

	first, err := f.svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	_ = f.svc.Logout(ctx, 1)

	second, err := f.svc.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("expected a fresh session id per login")
	}
	if f.svc.HasSession(ctx, 1, "alice", first.ID) {
		t.Error("expected the session from before logout to stay dead")
	}
	if !f.svc.HasSession(ctx, 1, "alice", second.ID) {
		t.Error("expected the new session to be live")
	}
}

func TestAuthService_HasSession_IgnoresAuthenticateEntries(t *testing.T) {
	f := setupAuthService(t)
	ctx := context.Background()
	f.store.queryFunc = storeReturning(alice(), "secret1")

	if _, err := f.svc.Authenticate(ctx, "alice", "secret1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if f.svc.HasSession(ctx, 1, "alice", "") {
		t.Error("expected an entry without a session id not to authorise tokens")
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	f := setupAuthService(t)
	var created userdomain.NewAccount
	f.db.createFunc = func(ctx context.Context, account userdomain.NewAccount) (userdomain.Account, error) {
		created = account
		return userdomain.Account{
			User:         userdomain.User{ID: 5, Username: account.Username, Email: account.Email},
			PasswordHash: account.PasswordHash,
		}, nil
	}

	user, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: "alice",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != 5 || user.Username != "alice" {
		t.Errorf("unexpected user %+v", user)
	}
	if created.Email != "alice@example.com" {
		t.Errorf("expected derived email, got %q", created.Email)
	}
	if created.PasswordHash != "hashed:password123" {
		t.Errorf("expected hashed password to be stored, got %q", created.PasswordHash)
	}
	if f.cache.Len() != 0 {
		t.Error("expected register not to touch the session cache")
	}
}

func TestAuthService_Register_UsernameTaken(t *testing.T) {
	f := setupAuthService(t)
	f.db.createFunc = func(ctx context.Context, account userdomain.NewAccount) (userdomain.Account, error) {
		return userdomain.Account{}, repository.ErrUsernameAlreadyExists
	}

	_, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: "alice",
		Password: "password123",
	})
	if !errors.Is(err, service.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthService_Register_DatabaseError(t *testing.T) {
	f := setupAuthService(t)
	f.db.createFunc = func(ctx context.Context, account userdomain.NewAccount) (userdomain.Account, error) {
		return userdomain.Account{}, errors.New("read-only transaction")
	}

	_, err := f.svc.Register(context.Background(), service.RegisterInput{
		Username: "alice",
		Password: "password123",
	})
	if !errors.Is(err, service.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := setupAuthService(t)

	cases := []struct {
		name  string
		input service.RegisterInput
		want  error
	}{
		{"short username", service.RegisterInput{Username: "al", Password: "password123"}, service.ErrValidationUsernameLength},
		{"bad username chars", service.RegisterInput{Username: "al ice", Password: "password123"}, service.ErrValidationUsernameChars},
		{"username edge dash", service.RegisterInput{Username: "-alice", Password: "password123"}, service.ErrValidationUsernameChars},
		{"short password", service.RegisterInput{Username: "alice", Password: "pass1"}, service.ErrValidationPasswordLength},
		{"password without digit", service.RegisterInput{Username: "alice", Password: "password"}, service.ErrValidationPasswordLatinDigit},
		{"bad email", service.RegisterInput{Username: "alice", Email: "not-an-email", Password: "password123"}, service.ErrValidationEmail},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Register(context.Background(), tc.input)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAuthService_RegisterThenAuthenticate(t *testing.T) {
	db := repository.NewMemoryDatabase()
	hasher := &crypto.BcryptHasher{Cost: 4}
	store := newCredentialStore(t, db, hasher, nil)
	cache := service.NewMemorySessionCache(service.SessionCacheConfig{})
	svc := service.NewAuthService(cache, store, db, hasher, service.AuthServiceConfig{MaxRetries: 3}, newTestLogger(t))
	ctx := context.Background()

	registered, err := svc.Register(ctx, service.RegisterInput{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice", "wrong-password1"); !errors.Is(err, service.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	user, err := svc.Authenticate(ctx, "alice", "password123")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if user != registered {
		t.Errorf("expected %+v, got %+v", registered, user)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("expected derived email, got %q", user.Email)
	}
}

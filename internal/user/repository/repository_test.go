package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

func newSQLite(t *testing.T) *SQLiteDatabase {
	t.Helper()
	db, err := NewSQLiteDatabase(context.Background(), filepath.Join(t.TempDir(), "nested", "auth.db"))
	if err != nil {
		t.Fatalf("NewSQLiteDatabase: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func backends(t *testing.T) map[string]Database {
	return map[string]Database{
		"memory": NewMemoryDatabase(),
		"sqlite": newSQLite(t),
	}
}

func TestDatabase_CreateAndQuery(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			alice, err := db.Create(ctx, domain.NewAccount{Username: "alice", Email: "alice@example.com", PasswordHash: "h1"})
			if err != nil {
				t.Fatalf("create alice: %v", err)
			}
			bob, err := db.Create(ctx, domain.NewAccount{Username: "bob", Email: "bob@example.com", PasswordHash: "h2"})
			if err != nil {
				t.Fatalf("create bob: %v", err)
			}

			if alice.ID <= 0 || bob.ID <= 0 || alice.ID == bob.ID {
				t.Fatalf("expected distinct positive ids, got %d and %d", alice.ID, bob.ID)
			}

			got, err := db.Query(ctx, domain.QuerySpec{Username: "alice"})
			if err != nil {
				t.Fatalf("query by username: %v", err)
			}
			if len(got) != 1 || got[0].ID != alice.ID || got[0].PasswordHash != "h1" || got[0].Email != "alice@example.com" {
				t.Errorf("unexpected result %+v", got)
			}

			got, err = db.Query(ctx, domain.QuerySpec{ID: bob.ID})
			if err != nil {
				t.Fatalf("query by id: %v", err)
			}
			if len(got) != 1 || got[0].Username != "bob" {
				t.Errorf("unexpected result %+v", got)
			}

			got, err = db.Query(ctx, domain.QuerySpec{Username: "alice", ID: bob.ID})
			if err != nil {
				t.Fatalf("query mismatched: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no rows for mismatched username and id, got %+v", got)
			}
		})
	}
}

func TestDatabase_QueryMissing(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := db.Query(context.Background(), domain.QuerySpec{Username: "ghost"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 0 {
				t.Errorf("expected no rows, got %+v", got)
			}
		})
	}
}

func TestDatabase_DuplicateUsername(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := db.Create(ctx, domain.NewAccount{Username: "carol", Email: "c@example.com", PasswordHash: "h"}); err != nil {
				t.Fatalf("create: %v", err)
			}

			_, err := db.Create(ctx, domain.NewAccount{Username: "carol", Email: "c2@example.com", PasswordHash: "h"})
			if !errors.Is(err, ErrUsernameAlreadyExists) {
				t.Fatalf("expected ErrUsernameAlreadyExists, got %v", err)
			}
		})
	}
}

func TestDatabase_EmptySpec(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := db.Query(context.Background(), domain.QuerySpec{})
			if !errors.Is(err, ErrEmptyQuery) {
				t.Fatalf("expected ErrEmptyQuery, got %v", err)
			}
		})
	}
}

func TestMemoryDatabase_CancelledContext(t *testing.T) {
	db := NewMemoryDatabase()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := db.Query(ctx, domain.QuerySpec{Username: "alice"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

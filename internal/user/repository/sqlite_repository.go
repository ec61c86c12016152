package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/AlibekovAA/session-auth/backend/internal/common/constants"
	commondb "github.com/AlibekovAA/session-auth/backend/internal/common/db"
	"github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

const sqliteBackend = "sqlite"

type SQLiteDatabase struct {
	db        *sql.DB
	writeLock sync.Mutex // modernc sqlite does not support concurrent writers
}

// NewSQLiteDatabase opens (creating if needed) the database file at path and
// ensures the schema exists.
func NewSQLiteDatabase(ctx context.Context, path string) (*SQLiteDatabase, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", constants.SQLiteBusyTimeoutMs)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT    UNIQUE NOT NULL,
			email         TEXT    NOT NULL,
			password_hash TEXT    NOT NULL,
			created_at    INTEGER NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteDatabase{db: db}, nil
}

func (r *SQLiteDatabase) Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Account, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []any
	)
	if spec.Username != "" {
		conds = append(conds, "username = ?")
		args = append(args, spec.Username)
	}
	if spec.ID > 0 {
		conds = append(conds, "id = ?")
		args = append(args, spec.ID)
	}
	args = append(args, limitOf(spec))

	start := time.Now()
	accounts, err := r.query(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+strings.Join(conds, " AND ")+" ORDER BY id LIMIT ?",
		args...,
	)
	if err := commondb.ObserveQuery(sqliteBackend, "query users", start, err); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *SQLiteDatabase) query(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var (
			a       domain.Account
			created int64
		)
		if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &created); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		a.CreatedAt = time.Unix(created, 0).UTC()
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *SQLiteDatabase) Create(ctx context.Context, account domain.NewAccount) (domain.Account, error) {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	now := time.Now().UTC().Truncate(time.Second)

	start := time.Now()
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		account.Username,
		account.Email,
		account.PasswordHash,
		now.Unix(),
	)
	if err != nil {
		var liteErr *sqlite.Error
		if errors.As(err, &liteErr) {
			switch liteErr.Code() {
			case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
				err = ErrUsernameAlreadyExists
			}
		}
	}
	if err := commondb.ObserveQuery(sqliteBackend, "create user", start, err, ErrUsernameAlreadyExists); err != nil {
		return domain.Account{}, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Account{}, fmt.Errorf("last insert id: %w", err)
	}

	return domain.Account{
		User: domain.User{
			ID:       id,
			Username: account.Username,
			Email:    account.Email,
		},
		PasswordHash: account.PasswordHash,
		CreatedAt:    now,
	}, nil
}

func (r *SQLiteDatabase) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	commondb "github.com/AlibekovAA/session-auth/backend/internal/common/db"
	"github.com/AlibekovAA/session-auth/backend/internal/common/logger"
	"github.com/AlibekovAA/session-auth/backend/internal/user/domain"
)

const pgBackend = "postgres"

const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id            BIGSERIAL PRIMARY KEY,
	username      TEXT        NOT NULL UNIQUE,
	email         TEXT        NOT NULL,
	password_hash TEXT        NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PgDatabase struct {
	pool  *pgxpool.Pool
	retry commondb.RetryConfig
	log   *logger.Logger
}

func NewPgDatabase(pool *pgxpool.Pool, log *logger.Logger) *PgDatabase {
	return &PgDatabase{pool: pool, retry: commondb.DefaultRetryConfig, log: log}
}

func (r *PgDatabase) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (r *PgDatabase) Query(ctx context.Context, spec domain.QuerySpec) ([]domain.Account, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	where, args := pgWhere(spec)
	args = append(args, limitOf(spec))
	sql := fmt.Sprintf(
		`SELECT id, username, email, password_hash, created_at FROM users WHERE %s ORDER BY id LIMIT $%d`,
		where, len(args),
	)

	var accounts []domain.Account
	start := time.Now()
	err := commondb.RetryWithBackoff(ctx, r.log, r.retry, commondb.IsRetryablePgError, func(ctx context.Context) error {
		accounts = accounts[:0]

		rows, err := r.pool.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var a domain.Account
			if err := rows.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			accounts = append(accounts, a)
		}
		return rows.Err()
	})
	if err := commondb.ObserveQuery(pgBackend, "query users", start, err); err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *PgDatabase) Create(ctx context.Context, account domain.NewAccount) (domain.Account, error) {
	created := domain.Account{
		User: domain.User{
			Username: account.Username,
			Email:    account.Email,
		},
		PasswordHash: account.PasswordHash,
	}

	start := time.Now()
	err := r.pool.QueryRow(
		ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ($1, $2, $3) RETURNING id, created_at`,
		account.Username,
		account.Email,
		account.PasswordHash,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			err = ErrUsernameAlreadyExists
		}
	}
	if err := commondb.ObserveQuery(pgBackend, "create user", start, err, ErrUsernameAlreadyExists); err != nil {
		return domain.Account{}, err
	}

	return created, nil
}

func (r *PgDatabase) Close() error {
	r.pool.Close()
	return nil
}

func pgWhere(spec domain.QuerySpec) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if spec.Username != "" {
		args = append(args, spec.Username)
		conds = append(conds, fmt.Sprintf("username = $%d", len(args)))
	}
	if spec.ID > 0 {
		args = append(args, spec.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

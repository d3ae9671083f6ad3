// Package postgres implements the checkout repositories on PostgreSQL.
package postgres

import (
	"context"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/checkout-api/db"
	"github.com/xenking/checkout-api/internal/constraint"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database config")
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create connection pool")
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return errors.Wrap(err, "run migrations")
	}
	return nil
}

// Integrity violations reported by PostgreSQL.
var constraintCodes = map[string]struct{}{
	"23502": {}, // not_null_violation
	"23503": {}, // foreign_key_violation
	"23505": {}, // unique_violation
	"23514": {}, // check_violation
	"22001": {}, // string_data_right_truncation
	"22003": {}, // numeric_value_out_of_range
}

// translate maps integrity violations to constraint.ErrViolation.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := constraintCodes[pgErr.Code]; ok {
			return errors.Wrapf(constraint.ErrViolation, "%s: %s", pgErr.Code, pgErr.Message)
		}
	}
	return err
}

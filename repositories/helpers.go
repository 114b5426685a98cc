package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// SQLExecutor is satisfied by *sql.DB and *sql.Tx, so repository methods can
// run standalone or inside a caller-owned transaction.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrSerializationFailure reports a transaction rejected by the database
// because it conflicted with a concurrent one.
var ErrSerializationFailure = errors.New("transaction serialization failure")

// TxRunner runs a function inside a single database transaction. Writes made
// through the passed executor are all-or-nothing.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w (rollback also failed: %v)", err, rbErr)
		}
		return translateSQLState(err)
	}

	if err := tx.Commit(); err != nil {
		return translateSQLState(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// translateSQLState maps Postgres serialization aborts (SQLSTATE 40001) to
// ErrSerializationFailure so callers can retry or surface a typed conflict.
func translateSQLState(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" {
		return fmt.Errorf("%w: %v", ErrSerializationFailure, err)
	}
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError // Возвращаем переданную ошибку "не найдено"
	}
	return nil
}

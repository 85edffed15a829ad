// Package repository is the PostgreSQL implementation of the transactional store.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parcelhub/internal/ports/storetx"
)

// Store runs units of work against PostgreSQL.
type Store struct {
	db *pgxpool.Pool
}

// NewStore creates a new Store.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// WithTx opens a read-committed transaction and executes fn within it. Errors
// are classified so callers can tell conflicts and transient failures apart.
func (s *Store) WithTx(ctx context.Context, fn func(tx storetx.Repository) error) (err error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify(fmt.Errorf("begin tx: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				panic(rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(&TxRepo{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return classify(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// TxRepo is storetx.Repository bound to one pgx transaction.
type TxRepo struct {
	tx pgx.Tx
}

var _ storetx.Repository = (*TxRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

// one scans a single row, turning pgx.ErrNoRows into (nil, nil).
func one[T any](row pgx.Row, scan func(rowScanner, *T) error) (*T, error) {
	var v T
	if err := scan(row, &v); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// many collects all rows of a query.
func many[T any](rows pgx.Rows, err error, scan func(rowScanner, *T) error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var v T
		if err := scan(rows, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// affected reports whether a conditional statement touched a row.
func affected(tag interface{ RowsAffected() int64 }, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"parcelhub/internal/apperr"
)

// IsDuplicate - signals that the error is a duplicate key violation.
func IsDuplicate(err error) bool {
	return pgCode(err) == "23505"
}

// IsNotFound - signals that the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsRetryable reports whether err is a serialization, deadlock, lock or
// connection failure that may succeed when the transaction is retried.
func IsRetryable(err error) bool {
	switch pgCode(err) {
	case "40001", "40P01", "55P03", "57014":
		return true
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// classify maps driver errors onto the application error kinds.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case apperr.KindOf(err) != apperr.KindInternal:
		return err
	case errors.Is(err, context.Canceled):
		return err
	case IsDuplicate(err):
		return apperr.Conflictf("duplicate record: %s", constraintOf(err))
	case IsRetryable(err):
		return apperr.Transient(err)
	default:
		return err
	}
}

func pgCode(err error) string {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return pgerr.Code
	}
	return ""
}

func constraintOf(err error) string {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return pgerr.ConstraintName
	}
	return ""
}

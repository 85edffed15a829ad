package apperr

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when the input fails domain validation.
var ErrInvalid = errors.New("invalid input")

// ErrConflict indicates an illegal state transition or a uniqueness conflict (HTTP 409).
var ErrConflict = errors.New("state conflict")

// ErrCustodyMismatch indicates that the acting hub or rider does not hold the record.
// It is a state conflict and matches ErrConflict as well.
var ErrCustodyMismatch = errors.New("custody mismatch")

// ErrNotFound indicates that the requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrLedgerInconsistent indicates that stored balances disagree with the ledger.
var ErrLedgerInconsistent = errors.New("ledger inconsistent")

// ErrTransient indicates a connection, lock or serialization failure that may succeed on retry.
var ErrTransient = errors.New("transient store error")

// Kind is a stable, machine readable error category.
type Kind string

// List of error kinds
const (
	KindValidation          Kind = "validation"
	KindStateConflict       Kind = "state_conflict"
	KindCustodyMismatch     Kind = "custody_mismatch"
	KindNotFound            Kind = "not_found"
	KindLedgerInconsistency Kind = "ledger_inconsistency"
	KindTransient           Kind = "transient"
	KindInternal            Kind = "internal"
)

// Error carries a sentinel category, a human readable message and an optional cause.
type Error struct {
	kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.kind, e.Err)
	default:
		return e.kind.Error()
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches the error category sentinel.
func (e *Error) Is(target error) bool {
	if target == e.kind {
		return true
	}
	return e.kind == ErrCustodyMismatch && target == ErrConflict
}

// Message returns the message safe to show to a caller.
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.kind.Error()
}

func newf(kind error, format string, args ...any) error {
	return &Error{kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Invalidf returns a validation error.
func Invalidf(format string, args ...any) error { return newf(ErrInvalid, format, args...) }

// Conflictf returns a state conflict error.
func Conflictf(format string, args ...any) error { return newf(ErrConflict, format, args...) }

// Custodyf returns a custody mismatch error.
func Custodyf(format string, args ...any) error { return newf(ErrCustodyMismatch, format, args...) }

// NotFoundf returns a not found error.
func NotFoundf(format string, args ...any) error { return newf(ErrNotFound, format, args...) }

// Inconsistentf returns a ledger consistency error.
func Inconsistentf(format string, args ...any) error {
	return newf(ErrLedgerInconsistent, format, args...)
}

// Transient wraps err as retryable.
func Transient(err error) error {
	return &Error{kind: ErrTransient, Err: err}
}

// KindOf classifies err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalid):
		return KindValidation
	case errors.Is(err, ErrCustodyMismatch):
		return KindCustodyMismatch
	case errors.Is(err, ErrConflict):
		return KindStateConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrLedgerInconsistent):
		return KindLedgerInconsistency
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindInternal
	}
}

// PublicMessage returns the caller-facing message for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.kind != ErrTransient && e.kind != ErrLedgerInconsistent {
		return e.Message()
	}
	switch KindOf(err) {
	case KindValidation:
		return "invalid input"
	case KindCustodyMismatch:
		return "custody mismatch"
	case KindStateConflict:
		return "state conflict"
	case KindNotFound:
		return "not found"
	case KindTransient:
		return "temporarily unavailable, retry"
	default:
		return "internal error"
	}
}

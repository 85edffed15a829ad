// Package logx is the structured logging facade used across parcelhub.
// Services depend on Logger only; main wires it to slog.
package logx

import (
	"time"

	"github.com/shopspring/decimal"
)

// Logger writes leveled entries with key-value fields.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field is one key-value pair of an entry.
type Field struct {
	Key   string
	Value any
}

// Any, String, Int, Int64, Bool, Time and Duration build typed fields.
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Time(key string, value time.Time) Field { return Field{Key: key, Value: value} }

func Duration(key string, value time.Duration) Field { return Field{Key: key, Value: value} }

// Decimal logs money in its exact string form so amounts never pass through float64.
func Decimal(key string, value decimal.Decimal) Field {
	return Field{Key: key, Value: value.String()}
}

// OptionalID logs an optional foreign key; nil becomes an explicit null.
func OptionalID(key string, id *int64) Field {
	if id == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: *id}
}

// Err logs err under "error". A nil error is logged as an empty string.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Nop discards everything.
func Nop() Logger { return nop{} }

type nop struct{}

func (nop) Debug(string, ...Field) {}
func (nop) Info(string, ...Field)  {}
func (nop) Warn(string, ...Field)  {}
func (nop) Error(string, ...Field) {}
func (nop) With(...Field) Logger   { return nop{} }
func (nop) Sync() error            { return nil }

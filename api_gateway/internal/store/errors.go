package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is wrapped by every lookup that matches no row.
var ErrNotFound = errors.New("record not found")

// ValidationError rejects input before any statement is issued.
type ValidationError struct {
	Entity string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s input: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s.%s: %s", e.Entity, e.Field, e.Reason)
}

// StorageError is a failure reported by the database for a single operation.
type StorageError struct {
	Entity   string
	Op       string
	SQLState string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Postgres error codes surfaced to clients.
// https://www.postgresql.org/docs/current/errcodes-appendix.html
var sqlStateReasons = map[string]string{
	"23505": "duplicate value violates a unique constraint",
	"23502": "a required column is null",
	"23514": "value violates a check constraint",
	"23503": "value violates a foreign key constraint",
	"22001": "value too long for column",
	"22003": "numeric value out of range",
	"22P02": "invalid input syntax",
	"42P01": "table does not exist",
	"57014": "statement canceled",
}

// Reason is a client-safe description of the failure.
func (e *StorageError) Reason() string {
	if reason, ok := sqlStateReasons[e.SQLState]; ok {
		return reason
	}
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return "statement timed out"
	}
	if errors.Is(e.Err, context.Canceled) {
		return "request canceled"
	}
	return "storage failure"
}

func storageError(entity, op string, err error) error {
	se := &StorageError{Entity: entity, Op: op, Err: err}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		se.SQLState = string(pqErr.Code)
	}
	return se
}

func notFound(entity string, id int64) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

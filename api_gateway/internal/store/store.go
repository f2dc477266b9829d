// Package store maps entity operations onto single parameterized statements.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ndrohith09/Zerobase/api_gateway/internal/schema"
)

// Record is one row: the generated id plus column values keyed by column name.
// Values are int64, string, or nil for SQL NULL.
type Record struct {
	ID     int64
	Values map[string]any
}

// Metrics are optional query instruments.
type Metrics struct {
	Queries  *prometheus.CounterVec   // labels: entity, operation, status
	Duration *prometheus.HistogramVec // labels: entity, operation
}

// Store runs entity operations over a shared handle. It holds no other state and is
// safe for concurrent use.
type Store struct {
	db      *sql.DB
	timeout time.Duration
	metrics *Metrics
}

// NewStore wraps db. A positive timeout bounds every statement.
func NewStore(db *sql.DB, timeout time.Duration, metrics *Metrics) *Store {
	return &Store{db: db, timeout: timeout, metrics: metrics}
}

// PingContext checks the shared handle within the statement timeout.
func (s *Store) PingContext(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// List returns every row of the entity's table ordered by id. No rows is an empty slice.
func (s *Store) List(ctx context.Context, e *schema.Entity) (records []Record, err error) {
	defer s.observe(e, "list", time.Now(), &err)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY id", selectList(e), e.Table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError(e.Name, "list", err)
	}
	defer rows.Close()

	records = []Record{}
	for rows.Next() {
		rec, err := scanRecord(e, rows)
		if err != nil {
			return nil, storageError(e.Name, "list", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(e.Name, "list", err)
	}
	return records, nil
}

// Get returns the row with the given id.
func (s *Store) Get(ctx context.Context, e *schema.Entity, id int64) (rec *Record, err error) {
	defer s.observe(e, "get", time.Now(), &err)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", selectList(e), e.Table)
	rec, err = scanRecord(e, s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(e.Name, id)
	}
	if err != nil {
		return nil, storageError(e.Name, "get", err)
	}
	return rec, nil
}

// Create inserts a row and returns it with its generated id. Every required field
// must be present; optional fields left out are stored as NULL.
func (s *Store) Create(ctx context.Context, e *schema.Entity, input map[string]any) (rec *Record, err error) {
	defer s.observe(e, "create", time.Now(), &err)

	if err := checkUnknown(e, input); err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(e.Fields))
	placeholders := make([]string, 0, len(e.Fields))
	args := make([]any, 0, len(e.Fields))
	for _, f := range e.Fields {
		raw, ok := input[f.Name]
		if !ok {
			if f.IsRequired() {
				return nil, &ValidationError{Entity: e.Name, Field: f.Name, Reason: "value is required"}
			}
			continue
		}
		v, err := coerce(e, f, raw)
		if err != nil {
			return nil, err
		}
		cols = append(cols, f.Name)
		args = append(args, v)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", e.Table, selectList(e))
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			e.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "), selectList(e))
	}
	rec, err = scanRecord(e, s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, storageError(e.Name, "create", err)
	}
	return rec, nil
}

// Update overwrites the supplied fields of one row and leaves the rest untouched.
// A missing row is reported as ErrNotFound.
func (s *Store) Update(ctx context.Context, e *schema.Entity, id int64, input map[string]any) (rec *Record, err error) {
	defer s.observe(e, "update", time.Now(), &err)

	if err := checkUnknown(e, input); err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, &ValidationError{Entity: e.Name, Reason: "update requires at least one field"}
	}

	sets := make([]string, 0, len(input))
	args := make([]any, 0, len(input)+1)
	for _, f := range e.Fields {
		raw, ok := input[f.Name]
		if !ok {
			continue
		}
		v, err := coerce(e, f, raw)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Name, len(args)))
	}
	args = append(args, id)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		e.Table, strings.Join(sets, ", "), len(args), selectList(e))
	rec, err = scanRecord(e, s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(e.Name, id)
	}
	if err != nil {
		return nil, storageError(e.Name, "update", err)
	}
	return rec, nil
}

// Delete removes one row and returns its last values.
func (s *Store) Delete(ctx context.Context, e *schema.Entity, id int64) (rec *Record, err error) {
	defer s.observe(e, "delete", time.Now(), &err)

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1 RETURNING %s", e.Table, selectList(e))
	rec, err = scanRecord(e, s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(e.Name, id)
	}
	if err != nil {
		return nil, storageError(e.Name, "delete", err)
	}
	return rec, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) observe(e *schema.Entity, op string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	switch {
	case *errp == nil:
	case errors.Is(*errp, ErrNotFound):
		status = "not_found"
	default:
		var ve *ValidationError
		if errors.As(*errp, &ve) {
			status = "invalid"
		} else {
			status = "error"
		}
	}
	if s.metrics.Queries != nil {
		s.metrics.Queries.WithLabelValues(e.Name, op, status).Inc()
	}
	if s.metrics.Duration != nil {
		s.metrics.Duration.WithLabelValues(e.Name, op).Observe(time.Since(start).Seconds())
	}
}

func selectList(e *schema.Entity) string {
	return "id, " + strings.Join(e.Columns(), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(e *schema.Entity, row rowScanner) (*Record, error) {
	rec := &Record{Values: make(map[string]any, len(e.Fields))}
	dest := make([]any, 0, len(e.Fields)+1)
	dest = append(dest, &rec.ID)
	reads := make([]func() any, len(e.Fields))
	for i, f := range e.Fields {
		target, read := scanTarget(f)
		dest = append(dest, target)
		reads[i] = read
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	for i, f := range e.Fields {
		rec.Values[f.Name] = reads[i]()
	}
	return rec, nil
}

func checkUnknown(e *schema.Entity, input map[string]any) error {
	var unknown []string
	for name := range input {
		if _, ok := e.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &ValidationError{Entity: e.Name, Reason: "unknown fields: " + strings.Join(unknown, ", ")}
}

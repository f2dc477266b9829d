package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	_ "github.com/lib/pq"

	"github.com/ndrohith09/Zerobase/pkg/logging"
)

// PostgresConn represents a PostgreSQL database connection
type PostgresConn = *sql.DB

// ErrNoRows is returned when a query returns no rows
var ErrNoRows = sql.ErrNoRows

// sqlOpen is swapped in tests to avoid a live server.
var sqlOpen = sql.Open

// Config holds database configuration
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectAttempts bounds the total number of open+ping attempts at startup.
	ConnectAttempts int
	// RetryDelay is the fixed wait between attempts. There is no backoff.
	RetryDelay time.Duration
}

// DefaultConfig returns default database configuration
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnectAttempts: 5,
		RetryDelay:      2 * time.Second,
	}
}

// ConnectionError reports that the store stayed unreachable for every attempt.
type ConnectionError struct {
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to database after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Connect opens the shared handle, retrying a fixed number of times with a fixed delay.
// Statements issued on the returned handle outside an explicit transaction autocommit.
func Connect(ctx context.Context, cfg Config, logger logging.Logger) (PostgresConn, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	maxAttempts := cfg.ConnectAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := cfg.RetryDelay
	if delay < 0 {
		delay = 0
	}

	policy := retrypolicy.NewBuilder[*sql.DB]().
		WithMaxAttempts(maxAttempts).
		WithDelay(delay).
		ReturnLastFailure().
		Build()

	attempt := 0
	db, err := failsafe.With(policy).WithContext(ctx).Get(func() (*sql.DB, error) {
		attempt++
		db, err := open(ctx, cfg.URL)
		if err != nil {
			logger.WithError(err).WithFields(logging.Fields{
				"attempt":      attempt,
				"max_attempts": maxAttempts,
			}).Warn("Database connection attempt failed")
			return nil, err
		}
		return db, nil
	})
	if err != nil {
		return nil, &ConnectionError{Attempts: attempt, Err: err}
	}

	// Set connection pool settings
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.WithFields(logging.Fields{
		"attempts":          attempt,
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime,
	}).Info("Database connected")

	return db, nil
}

func open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sqlOpen("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// MustConnect is like Connect but exits the process on error
func MustConnect(ctx context.Context, cfg Config, logger logging.Logger) PostgresConn {
	db, err := Connect(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	return db
}

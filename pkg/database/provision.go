package database

import (
	"context"
	"fmt"

	"github.com/ndrohith09/Zerobase/pkg/logging"
)

// DDL is one schema statement, named after the table it creates.
type DDL struct {
	Table string
	SQL   string
}

// Provision runs each statement on its own, in order. Statements are expected to be
// CREATE TABLE IF NOT EXISTS, so re-running against a provisioned store changes nothing.
func Provision(ctx context.Context, db PostgresConn, statements []DDL, logger logging.Logger) error {
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("provision table %s: %w", stmt.Table, err)
		}
		logger.WithField("table", stmt.Table).Debug("Table provisioned")
	}
	logger.WithField("tables", len(statements)).Info("Tables provisioned")
	return nil
}

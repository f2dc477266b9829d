package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestProvisionRunsEachStatementIndependently(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	ddl := []DDL{
		{Table: "Birds", SQL: "CREATE TABLE IF NOT EXISTS Birds (id SERIAL PRIMARY KEY, name VARCHAR(200))"},
		{Table: "Sample", SQL: "CREATE TABLE IF NOT EXISTS Sample (id SERIAL PRIMARY KEY, word VARCHAR(255))"},
	}

	// Twice: the second pass must issue the same idempotent statements and nothing else.
	for i := 0; i < 2; i++ {
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS Birds`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`CREATE TABLE IF NOT EXISTS Sample`).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	for i := 0; i < 2; i++ {
		if err := Provision(context.Background(), db, ddl, quietLogger()); err != nil {
			t.Fatalf("Provision pass %d: %v", i+1, err)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProvisionStopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS Fish`).WillReturnError(errors.New("permission denied for schema public"))

	err = Provision(context.Background(), db, []DDL{
		{Table: "Fish", SQL: "CREATE TABLE IF NOT EXISTS Fish (id SERIAL PRIMARY KEY)"},
		{Table: "Sample", SQL: "CREATE TABLE IF NOT EXISTS Sample (id SERIAL PRIMARY KEY)"},
	}, quietLogger())
	if err == nil || !strings.Contains(err.Error(), "Fish") {
		t.Fatalf("expected error naming the table, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

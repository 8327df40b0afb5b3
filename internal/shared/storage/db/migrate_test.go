package db

import (
	"context"
	"io/fs"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"

	"civicfix-backend/internal/issues"
)

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	if err := prepareGoose(); err != nil {
		t.Fatalf("prepare goose: %v", err)
	}
	migrations, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	if err != nil {
		t.Fatalf("collect migrations: %v", err)
	}
	if len(migrations) != 2 || migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Fatalf("unexpected migrations %v", migrations)
	}

	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, name := range names {
		body, err := fs.ReadFile(migrationFiles, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}

func TestMigrationsCreateSchemaAndSeed(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer database.Close()
	if err := prepareGoose(); err != nil {
		t.Fatalf("prepare goose: %v", err)
	}

	ok := sqlmock.NewResult(0, 0)
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS issues`).WillReturnResult(ok)
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS issues_created_at_idx`).WillReturnResult(ok)
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS issues_status_idx`).WillReturnResult(ok)
	mock.ExpectExec(`CREATE SEQUENCE IF NOT EXISTS ticket_seq START WITH 2848`).WillReturnResult(ok)
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO issues .*'CFX-2847'.*'CFX-2845'.*'CFX-2842'.*'CFX-2839'.*'CFX-2835'`).WillReturnResult(ok)
	mock.ExpectCommit()

	if err := goose.UpContext(context.Background(), database, "migrations", goose.WithNoVersioning()); err != nil {
		t.Fatalf("up: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	if issues.FirstTicketNumber != 2848 {
		t.Fatalf("memory repo starts at %d, sequence starts at 2848", issues.FirstTicketNumber)
	}
}

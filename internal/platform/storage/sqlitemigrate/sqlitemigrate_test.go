package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsMigrationsInOrder(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"002_add_column.sql": &fstest.MapFile{Data: []byte("ALTER TABLE runs ADD COLUMN label TEXT;")},
		"001_create.sql":     &fstest.MapFile{Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
	}

	if err := Apply(sqlDB, migrations); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO runs (id, label) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("expected both migrations applied: %v", err)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{Data: []byte("CREATE TABLE runs (id TEXT PRIMARY KEY);")},
	}

	if err := Apply(sqlDB, migrations); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(sqlDB, migrations); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count applied migrations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded migration, got %d", count)
	}
}

func TestApplyOnlyRunsUpSection(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{Data: []byte(
			"-- +migrate Up\nCREATE TABLE runs (id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE runs;\n",
		)},
	}

	if err := Apply(sqlDB, migrations); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := sqlDB.Exec("INSERT INTO runs (id) VALUES ('a')"); err != nil {
		t.Fatalf("expected runs table to exist: %v", err)
	}
}

func TestUpSectionWithoutMarkers(t *testing.T) {
	content := "CREATE TABLE t (id TEXT);"
	if got := upSection(content); got != content {
		t.Fatalf("expected full content, got %q", got)
	}
}

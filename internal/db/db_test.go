package db

import (
	"path/filepath"
	"testing"
)

func TestMigrationsUpAndDown(t *testing.T) {
	database, err := Init("sqlite", filepath.Join(t.TempDir(), "nested", "clinic.db")+"?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer database.Close()

	err = RunMigrations(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	version, err := MigrationVersion(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}

	_, err = database.Exec(`INSERT INTO users (id, name, email, phone, picture, created_at) VALUES ('a', 'A', 'A@example.com', '', '', CURRENT_TIMESTAMP)`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = database.Exec(`INSERT INTO users (id, name, email, phone, picture, created_at) VALUES ('b', 'B', 'a@EXAMPLE.com', '', '', CURRENT_TIMESTAMP)`)
	if err == nil {
		t.Fatal("expected case-insensitive unique email index to reject duplicate")
	}

	err = MigrateDown(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("migrate down: %v", err)
	}

	version, err = MigrationVersion(database.DB, "sqlite")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 after rollback, got %d", version)
	}
}

func TestGetDialect(t *testing.T) {
	if getDialect("sqlite") != "sqlite3" || getDialect("pgx") != "postgres" {
		t.Fatal("unexpected dialect mapping")
	}
	if getDialect("mysql") != "mysql" {
		t.Fatal("expected unknown drivers to pass through")
	}
}

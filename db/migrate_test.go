package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetMigrationsPathMissing(t *testing.T) {
	// Run from a directory with no migrations folder anywhere nearby.
	tmp := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })

	if _, err := getMigrationsPath(); err == nil {
		t.Error("getMigrationsPath() found migrations in an empty directory")
	}
}

func TestGetMigrationsPathFound(t *testing.T) {
	tmp := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmp, "db", "migrations"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })

	path, err := getMigrationsPath()
	if err != nil {
		t.Fatalf("getMigrationsPath() error = %v", err)
	}
	if !strings.HasPrefix(path, "file://") {
		t.Errorf("path = %q, want file:// prefix", path)
	}
}

func TestVersionedMigrations(t *testing.T) {
	dbx := setup(t)

	// The embedded schema from setup() uses IF NOT EXISTS throughout, so the
	// versioned files apply cleanly over it or report no change.
	abs, err := filepath.Abs("migrations")
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	if _, statErr := os.Stat(abs); statErr != nil {
		t.Skipf("migrations directory not present: %v", statErr)
	}
	if err := RunMigrationsFromPath(dbx, "file://"+abs); err != nil {
		t.Fatalf("RunMigrationsFromPath() error = %v", err)
	}

	// Second run must be a no-op.
	if err := RunMigrationsFromPath(dbx, "file://"+abs); err != nil {
		t.Fatalf("second RunMigrationsFromPath() error = %v", err)
	}

	tables := []string{"users", "sessions", "oauth_tokens", "projects", "segments", "queue_items", "kv"}
	for _, table := range tables {
		var exists bool
		err := dbx.QueryRow(`SELECT EXISTS (
			SELECT FROM information_schema.tables WHERE table_name = $1
		)`, table).Scan(&exists)
		if err != nil {
			t.Fatalf("check table %s: %v", table, err)
		}
		if !exists {
			t.Errorf("table %s missing after migrations", table)
		}
	}
}

package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *SQLiteExecutor {
	t.Helper()

	db, err := TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")).Open(context.Background())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLiteExecutor(db)
}

func schemaFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_documents.sql": {Data: []byte(`
-- Description: documents
CREATE TABLE documents (
    id TEXT PRIMARY KEY,
    body TEXT NOT NULL
);
CREATE INDEX idx_documents_body ON documents(body);
`)},
		"migrations/002_snapshots.sql": {Data: []byte(`
CREATE TABLE snapshots (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES documents(id)
);
`)},
	}
}

func TestManager_RunMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	executor := openTestDB(t)
	manager := NewManager(NewFileScanner(), executor, schemaFS(), "migrations", discardLogger())

	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if applied != 2 {
		t.Fatalf("expected 2 applied migrations, got %d", applied)
	}

	if _, err := executor.db.ExecContext(ctx, `INSERT INTO documents (id, body) VALUES ('a', '{}')`); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if status.CurrentVersion != "002" || status.PendingCount != 0 {
		t.Fatalf("unexpected status: current=%s pending=%d", status.CurrentVersion, status.PendingCount)
	}
	if status.AppliedMigrations[0].Checksum == "" {
		t.Error("expected checksum to be recorded")
	}

	again, err := manager.RunMigrations(ctx)
	if err != nil || again != 0 {
		t.Fatalf("second run: applied=%d err=%v", again, err)
	}
}

func TestManager_FailedMigrationRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	executor := openTestDB(t)
	fsys := fstest.MapFS{
		"migrations/001_documents.sql": {Data: []byte("CREATE TABLE documents (id TEXT PRIMARY KEY);")},
		"migrations/002_broken.sql":    {Data: []byte("CREATE TABLE extra (id TEXT);\nINSERT INTO missing_table VALUES (1);")},
	}
	manager := NewManager(NewFileScanner(), executor, fsys, "migrations", discardLogger())

	applied, err := manager.RunMigrations(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 applied migration before failure, got %d", applied)
	}

	var name string
	err = executor.db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='extra'`).Scan(&name)
	if err == nil {
		t.Fatal("expected table from failed migration to be rolled back")
	}

	status, err := manager.GetMigrationStatus(ctx)
	if err != nil {
		t.Fatalf("GetMigrationStatus: %v", err)
	}
	if status.CurrentVersion != "001" || status.PendingCount != 1 {
		t.Fatalf("unexpected status: current=%s pending=%d", status.CurrentVersion, status.PendingCount)
	}
}

func TestManager_SequenceValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("gap in versions", func(t *testing.T) {
		t.Parallel()

		fsys := fstest.MapFS{
			"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			"m/003_c.sql": {Data: []byte("CREATE TABLE c (id TEXT);")},
		}
		manager := NewManager(NewFileScanner(), openTestDB(t), fsys, "m", discardLogger())
		_, err := manager.RunMigrations(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
		if !strings.Contains(err.Error(), "002") {
			t.Errorf("expected missing version in error, got %v", err)
		}
	})

	t.Run("edited applied migration", func(t *testing.T) {
		t.Parallel()

		executor := openTestDB(t)
		fsys := fstest.MapFS{"m/001_a.sql": {Data: []byte("CREATE TABLE a (id TEXT);")}}
		if _, err := NewManager(NewFileScanner(), executor, fsys, "m", discardLogger()).RunMigrations(ctx); err != nil {
			t.Fatalf("first run: %v", err)
		}

		fsys["m/001_a.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE a (id TEXT, extra TEXT);")}
		_, err := NewManager(NewFileScanner(), executor, fsys, "m", discardLogger()).RunMigrations(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("applied version without file", func(t *testing.T) {
		t.Parallel()

		executor := openTestDB(t)
		if _, err := NewManager(NewFileScanner(), executor, schemaFS(), "migrations", discardLogger()).RunMigrations(ctx); err != nil {
			t.Fatalf("first run: %v", err)
		}
		only := fstest.MapFS{"migrations/001_documents.sql": schemaFS()["migrations/001_documents.sql"]}
		_, err := NewManager(NewFileScanner(), executor, only, "migrations", discardLogger()).GetMigrationStatus(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})
}

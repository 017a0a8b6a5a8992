package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/persistence/sqlite/migration"
)

func TestTranslateError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, persistence.ErrNotFound},
		{"unique", errors.New("UNIQUE constraint failed: snapshots.id"), persistence.ErrDuplicate},
		{"not null", errors.New("NOT NULL constraint failed: roster_documents.body"), persistence.ErrConstraintViolation},
		{"busy", errors.New("database is locked (5) (SQLITE_BUSY)"), persistence.ErrConflict},
		{"already mapped", fmt.Errorf("%w: stale token", persistence.ErrConflict), persistence.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := translateError(tc.err); !errors.Is(got, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}

	if translateError(nil) != nil {
		t.Fatal("expected nil for nil")
	}
	plain := errors.New("disk I/O error")
	if got := translateError(plain); got != plain {
		t.Fatalf("expected unknown errors to pass through, got %v", got)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	storage, err := Open(ctx, migration.TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "tx.db")), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })

	if _, err := storage.db.ExecContext(ctx, `CREATE TABLE marks (id INTEGER PRIMARY KEY)`); err != nil {
		t.Fatalf("create table: %v", err)
	}

	boom := errors.New("boom")
	err = storage.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO marks (id) VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	if err := storage.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO marks (id) VALUES (2)`)
		return err
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var count int
	if err := storage.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM marks`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the committed row, got %d", count)
	}
}

package testfixtures

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/shift-roster/internal/logging"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/persistence/memory"
	"github.com/example/shift-roster/internal/persistence/sqlite"
	"github.com/example/shift-roster/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides a migrated store backed by a temporary SQLite file
// for integration-style persistence tests.
type SQLiteHarness struct {
	Store   *sqlite.Storage
	Clock   *Clock
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. A nil clock starts at ReferenceTime. Callers may
// optionally invoke Close, but the helper will also register a cleanup
// callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB, clock *Clock) *SQLiteHarness {
	tb.Helper()

	if clock == nil {
		clock = NewClock(time.Time{})
	}
	path := filepath.Join(tb.TempDir(), "roster.db")

	ctx := context.Background()
	storage, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path), clock.NowFunc())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if _, err := storage.Migrate(ctx, DiscardLogger()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: storage,
		Clock: clock,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// StoreFactory builds an empty store whose tokens come from clock.
type StoreFactory func(tb testing.TB, clock *Clock) persistence.Store

// StoreFactories lists every persistence.Store implementation so contract
// tests can run against each of them.
func StoreFactories() map[string]StoreFactory {
	return map[string]StoreFactory{
		"memory": func(tb testing.TB, clock *Clock) persistence.Store {
			return memory.Open(clock.NowFunc())
		},
		"sqlite": func(tb testing.TB, clock *Clock) persistence.Store {
			return NewSQLiteHarness(tb, clock).Store
		},
	}
}

// DiscardLogger returns a logger that drops every record.
func DiscardLogger() *slog.Logger {
	return logging.Discard()
}

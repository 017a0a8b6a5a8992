// Package sqlite stores roster documents and snapshots in SQLite through the
// pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationDir is the directory of migrationFiles holding the schema.
const MigrationDir = "migrations"

var _ persistence.Store = (*Storage)(nil)

// Storage implements persistence.Store on a SQLite database.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to the database described by config. now defaults to time.Now.
func Open(ctx context.Context, config migration.SQLiteConfig, now func() time.Time) (*Storage, error) {
	db, err := config.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open roster database: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Storage{db: db, now: now}, nil
}

// Migrate applies the embedded schema migrations and returns how many ran.
func (s *Storage) Migrate(ctx context.Context, logger *slog.Logger) (int, error) {
	manager := migration.NewManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.db),
		migrationFiles,
		MigrationDir,
		logger,
	)
	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		return applied, fmt.Errorf("migrate roster schema: %w", err)
	}
	return applied, nil
}

// MigrationStatus reports applied and pending schema migrations.
func (s *Storage) MigrationStatus(ctx context.Context, logger *slog.Logger) (*migration.MigrationStatus, error) {
	manager := migration.NewManager(
		migration.NewFileScanner(),
		migration.NewSQLiteExecutor(s.db),
		migrationFiles,
		MigrationDir,
		logger,
	)
	return manager.GetMigrationStatus(ctx)
}

// Ping checks the database connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

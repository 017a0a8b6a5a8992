package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager orchestrates scanning, validating and applying migrations.
type Manager struct {
	scanner  FileScanner
	executor Executor
	fsys     fs.FS
	dir      string
	logger   *slog.Logger
}

// NewManager creates a Manager reading migrations from dir inside fsys.
func NewManager(scanner FileScanner, executor Executor, fsys fs.FS, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		fsys:     fsys,
		dir:      dir,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in version order and returns
// how many were applied.
func (m *Manager) RunMigrations(ctx context.Context) (int, error) {
	startTime := time.Now()

	status, err := m.GetMigrationStatus(ctx)
	if err != nil {
		m.logger.Error("failed to determine migration status", "error", err)
		return 0, err
	}
	if status.PendingCount == 0 {
		m.logger.Info("database schema is up to date", "current_version", status.CurrentVersion)
		return 0, nil
	}

	m.logger.Info("migration execution starting",
		"current_version", status.CurrentVersion,
		"pending_count", status.PendingCount)

	for i, migration := range status.PendingMigrations {
		m.logger.Info("executing migration",
			"sequence", i+1,
			"total", status.PendingCount,
			"version", migration.Version,
			"description", migration.Description,
			"checksum", migration.Checksum)

		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.Error("migration failed", "version", migration.Version, "file", migration.FilePath, "error", err)
			return i, schemaError(migration.Version, migration.FilePath,
				"execute migration", fmt.Errorf("%w: %v", ErrMigrationFailed, err))
		}
	}

	m.logger.Info("all migrations completed",
		"applied", status.PendingCount,
		"execution_time", time.Since(startTime))
	return status.PendingCount, nil
}

// GetPendingMigrations returns list of migrations that need to be applied
func (m *Manager) GetPendingMigrations(ctx context.Context) ([]Migration, error) {
	status, err := m.GetMigrationStatus(ctx)
	if err != nil {
		return nil, err
	}
	return status.PendingMigrations, nil
}

// GetMigrationStatus compares the migration files with the schema_migrations
// table. It fails when the file sequence has gaps, when an applied version
// has no file, or when an applied file's checksum changed.
func (m *Manager) GetMigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := m.scanner.ScanMigrations(m.fsys, m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}
	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied versions: %w", err)
	}
	if err := validateMigrationSequence(available, applied); err != nil {
		return nil, fmt.Errorf("migration sequence validation failed: %w", err)
	}

	appliedMap := make(map[string]bool, len(applied))
	currentVersion := ""
	maxVersion := -1
	for _, a := range applied {
		appliedMap[a.Version] = true
		if v := versionNumber(a.Version); v > maxVersion {
			maxVersion = v
			currentVersion = a.Version
		}
	}

	pending := make([]Migration, 0)
	for _, migration := range available {
		if !appliedMap[migration.Version] {
			pending = append(pending, migration)
		}
	}

	return &MigrationStatus{
		CurrentVersion:    currentVersion,
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}, nil
}

// validateMigrationSequence ensures there are no gaps in migration version
// numbers and that applied migrations still match their files.
func validateMigrationSequence(available []Migration, applied []AppliedMigration) error {
	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	if len(available) > 0 {
		minVersion := versionNumber(available[0].Version)
		maxVersion := versionNumber(available[len(available)-1].Version)
		for version := minVersion; version <= maxVersion; version++ {
			if _, ok := byVersion[version]; !ok {
				return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, version)
			}
		}
	}

	for _, a := range applied {
		migration, ok := byVersion[versionNumber(a.Version)]
		if !ok {
			return fmt.Errorf("%w: applied migration %s not found in available migrations", ErrVersionConflict, a.Version)
		}
		if a.Checksum != "" && a.Checksum != migration.Checksum {
			return schemaError(a.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return nil
}

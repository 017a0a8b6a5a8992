package migration

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"
)

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		files         map[string]string // filename -> content
		expectedOrder []string
		expectedErr   error
		errorContains string
	}{
		{
			name: "sorted by numeric version",
			files: map[string]string{
				"010_add_snapshots.sql":    "CREATE TABLE snapshots (id TEXT PRIMARY KEY);",
				"002_add_indexes.sql":      "CREATE INDEX idx_docs_kind ON docs(kind);",
				"001_roster_documents.sql": "CREATE TABLE docs (id TEXT PRIMARY KEY);",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "non-SQL files are ignored",
			files: map[string]string{
				"001_roster_documents.sql": "CREATE TABLE docs (id TEXT PRIMARY KEY);",
				"README.md":                "# migrations",
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "invalid filename",
			files: map[string]string{
				"roster.sql": "CREATE TABLE docs (id TEXT);",
			},
			expectedErr:   ErrInvalidMigrationFile,
			errorContains: "does not match pattern",
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"001_a.sql":  "CREATE TABLE a (id TEXT);",
				"0001_b.sql": "CREATE TABLE b (id TEXT);",
			},
			expectedErr:   ErrDuplicateVersion,
			errorContains: "found in both",
		},
		{
			name: "comment only file",
			files: map[string]string{
				"001_empty.sql": "-- nothing here\n",
			},
			expectedErr:   ErrInvalidMigrationFile,
			errorContains: "no SQL statements",
		},
		{
			name: "unbalanced parentheses",
			files: map[string]string{
				"001_broken.sql": "CREATE TABLE docs (id TEXT;",
			},
			expectedErr:   ErrInvalidMigrationFile,
			errorContains: "parenthesis",
		},
		{
			name: "unterminated string",
			files: map[string]string{
				"001_broken.sql": "INSERT INTO docs VALUES ('x);",
			},
			expectedErr:   ErrInvalidMigrationFile,
			errorContains: "unterminated",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := fstest.MapFS{}
			for name, content := range tt.files {
				fsys["migrations/"+name] = &fstest.MapFile{Data: []byte(content)}
			}

			migrations, err := NewFileScanner().ScanMigrations(fsys, "migrations")
			if tt.expectedErr != nil || tt.errorContains != "" {
				if err == nil {
					t.Fatalf("expected error, got %d migrations", len(migrations))
				}
				if tt.expectedErr != nil && !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Fatalf("expected error containing %q, got %v", tt.errorContains, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
				if migrations[i].Checksum == "" {
					t.Errorf("migration %s has no checksum", migrations[i].Version)
				}
			}
		})
	}
}

func TestFileScanner_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewFileScanner().ScanMigrations(fstest.MapFS{}, "migrations")
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.Source != SourceFile {
		t.Fatalf("expected a file StepError, got %v", err)
	}
	if stepErr.Target != "migrations" {
		t.Fatalf("expected the directory as target, got %q", stepErr.Target)
	}
}

func TestFileScanner_Description(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/001_roster_documents.sql": {Data: []byte("-- Description: stage and live documents\nCREATE TABLE docs (id TEXT);")},
		"m/002_add_snapshots.sql":    {Data: []byte("CREATE TABLE snaps (id TEXT);")},
	}
	migrations, err := NewFileScanner().ScanMigrations(fsys, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := migrations[0].Description; got != "stage and live documents" {
		t.Errorf("expected description from comment, got %q", got)
	}
	if got := migrations[1].Description; got != "add snapshots" {
		t.Errorf("expected description from filename, got %q", got)
	}
}

func TestParseSQL(t *testing.T) {
	t.Parallel()

	sql := `-- header
CREATE TABLE a (id TEXT);

-- second
CREATE INDEX idx_a ON a(id);
`
	statements := parseSQL(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX idx_a ON a(id)" {
		t.Errorf("unexpected statement %q", statements[1])
	}
}

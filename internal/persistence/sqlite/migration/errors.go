package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")

	// ErrVersionConflict reports a gap in the file sequence or an applied
	// version whose file is gone.
	ErrVersionConflict = errors.New("migration version conflict")

	// ErrChecksumMismatch reports an applied file that was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// Source says which side of a migration run failed.
type Source string

const (
	SourceFile     Source = "file"
	SourceDatabase Source = "database"
	SourceSchema   Source = "schema"
)

// StepError records the step of a migration run that failed. Target is a
// file path for file and schema errors and the SQL text for database errors.
type StepError struct {
	Source  Source
	Version string
	Target  string
	Step    string
	Err     error
}

func (e *StepError) Error() string {
	where := string(e.Source)
	if e.Version != "" {
		where += " " + e.Version
	}
	if e.Source != SourceDatabase && e.Target != "" {
		where += " (" + e.Target + ")"
	}
	return fmt.Sprintf("migration %s: %s: %v", where, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func fileError(path, step string, err error) *StepError {
	return &StepError{Source: SourceFile, Target: path, Step: step, Err: err}
}

func schemaError(version, path, step string, err error) *StepError {
	return &StepError{Source: SourceSchema, Version: version, Target: path, Step: step, Err: err}
}

func databaseError(version, query, step string, err error) *StepError {
	return &StepError{Source: SourceDatabase, Version: version, Target: query, Step: step, Err: err}
}

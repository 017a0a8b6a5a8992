package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/shift-roster/internal/persistence"
)

// txFunc runs inside a single write transaction.
type txFunc func(tx *sql.Tx) error

// inTx commits when fn succeeds and rolls back on error or panic. Lock
// contention surfaces from here, so callers pass the result through
// translateError.
func (s *Storage) inTx(ctx context.Context, fn txFunc) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit roster transaction: %w", err)
	}
	return nil
}

var driverErrorKinds = []struct {
	sentinel error
	markers  []string
}{
	{persistence.ErrDuplicate, []string{"UNIQUE constraint failed", "PRIMARY KEY constraint failed"}},
	{persistence.ErrConstraintViolation, []string{"CHECK constraint failed", "NOT NULL constraint failed", "FOREIGN KEY constraint failed"}},
	// A writer held the lock past busy_timeout; the caller reloads and retries.
	{persistence.ErrConflict, []string{"database is locked", "SQLITE_BUSY"}},
}

// translateError maps driver errors onto the persistence sentinels. Errors
// that already wrap a sentinel pass through unchanged.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return persistence.ErrNotFound
	case errors.Is(err, persistence.ErrConflict),
		errors.Is(err, persistence.ErrNotFound),
		errors.Is(err, persistence.ErrDuplicate),
		errors.Is(err, persistence.ErrConstraintViolation):
		return err
	}
	msg := err.Error()
	for _, kind := range driverErrorKinds {
		for _, marker := range kind.markers {
			if strings.Contains(msg, marker) {
				return fmt.Errorf("%w: %v", kind.sentinel, err)
			}
		}
	}
	return err
}

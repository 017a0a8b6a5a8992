package application

import (
	"errors"
	"fmt"

	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
)

var (
	// ErrNotFound is returned when the requested document, shift or snapshot does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrNotConfigured is returned when the service was built without a store.
	ErrNotConfigured = errors.New("application: store not configured")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError = roster.ValidationError

func invalid(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.Add(field, message, nil)
	return vErr
}

// validateKey turns a malformed week key into a field level error.
func validateKey(key persistence.Key) error {
	if err := key.Validate(); err != nil {
		vErr := &ValidationError{}
		if key.WeekStart == "" {
			vErr.Add("weekStart", "week start is required", err)
		} else {
			vErr.Add("key", err.Error(), err)
		}
		return vErr
	}
	return nil
}

// mapRepoError converts store sentinels into service errors.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.Add("document", err.Error(), err)
		return vErr
	default:
		return err
	}
}

package roster

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/shift-roster/internal/timegrid"
)

var (
	// ErrInvalidTime is returned for malformed HH:MM values.
	ErrInvalidTime = timegrid.ErrInvalidTime
	// ErrInvalidDay is returned for unknown weekday codes.
	ErrInvalidDay = timegrid.ErrInvalidDay
	// ErrNonPositiveDuration is returned when a shift or segment would last zero minutes or less.
	ErrNonPositiveDuration = errors.New("roster: duration must be positive")
	// ErrSupervisorCycle is returned when supervisor pointers loop back on themselves.
	ErrSupervisorCycle = errors.New("roster: supervisor cycle")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	causes      []error
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field, msg := range v.FieldErrors {
		fields = append(fields, field+": "+msg)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, "; ")
}

// Unwrap exposes the sentinel errors that triggered individual field failures.
func (v *ValidationError) Unwrap() []error {
	if v == nil {
		return nil
	}
	return v.causes
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// Add records a field level validation error. cause may be nil.
func (v *ValidationError) Add(field, message string, cause error) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
	if cause != nil {
		v.causes = append(v.causes, cause)
	}
}

// Merge copies entries from another validation error into the receiver,
// prefixing every field with prefix.
func (v *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.Add(prefix+field, msg, nil)
	}
	v.causes = append(v.causes, other.causes...)
}

// OrNil returns nil when no field errors were recorded so callers can return
// the accumulator directly.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

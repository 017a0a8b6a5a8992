package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/shift-roster/internal/persistence"
)

func TestValidateKey(t *testing.T) {
	t.Parallel()

	if err := validateKey(persistence.Key{WeekStart: "2024-01-07", TZID: "UTC"}); err != nil {
		t.Fatalf("expected valid key, got %v", err)
	}

	cases := map[string]struct {
		key   persistence.Key
		field string
	}{
		"missing week": {key: persistence.Key{TZID: "UTC"}, field: "weekStart"},
		"bad week":     {key: persistence.Key{WeekStart: "2024-13-01", TZID: "UTC"}, field: "key"},
		"unknown zone": {key: persistence.Key{WeekStart: "2024-01-07", TZID: "Mars/Olympus"}, field: "key"},
		"missing zone": {key: persistence.Key{WeekStart: "2024-01-07"}, field: "key"},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := validateKey(tc.key)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected field %q, got %v", tc.field, vErr.FieldErrors)
			}
			if !errors.Is(err, persistence.ErrConstraintViolation) {
				t.Fatalf("expected constraint violation cause, got %v", err)
			}
		})
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	if mapRepoError(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if err := mapRepoError(fmt.Errorf("get: %w", persistence.ErrNotFound)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var vErr *ValidationError
	if err := mapRepoError(persistence.ErrConstraintViolation); !errors.As(err, &vErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	other := errors.New("disk I/O error")
	if err := mapRepoError(other); err != other {
		t.Fatalf("expected unexpected errors to pass through, got %v", err)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		err  error
		want string
	}{
		"nil":        {err: nil, want: ""},
		"not found":  {err: fmt.Errorf("x: %w", ErrNotFound), want: "not_found"},
		"store miss": {err: persistence.ErrNotFound, want: "not_found"},
		"conflict":   {err: persistence.ErrConflict, want: "conflict"},
		"duplicate":  {err: persistence.ErrDuplicate, want: "duplicate"},
		"validation": {err: invalid("shift.start", "bad"), want: "validation"},
		"other":      {err: errors.New("boom"), want: "unexpected"},
	}
	for name, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}

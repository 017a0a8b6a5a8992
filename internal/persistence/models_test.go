package persistence

import (
	"errors"
	"testing"
	"time"
)

func TestWriteConditionCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cond    WriteCondition
		exists  bool
		current string
		wantErr bool
	}{
		{name: "force ignores state", cond: WriteCondition{Force: true, ExpectedUpdatedAt: "x"}, exists: true, current: "y"},
		{name: "create when absent", cond: WriteCondition{}},
		{name: "create when present", cond: WriteCondition{}, exists: true, current: "t1", wantErr: true},
		{name: "update matching", cond: WriteCondition{ExpectedUpdatedAt: "t1"}, exists: true, current: "t1"},
		{name: "update stale", cond: WriteCondition{ExpectedUpdatedAt: "t1"}, exists: true, current: "t2", wantErr: true},
		{name: "update missing", cond: WriteCondition{ExpectedUpdatedAt: "t1"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.cond.Check(tt.exists, tt.current)
			if tt.wantErr && !errors.Is(err, ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestNextTokenIsStrictlyIncreasing(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 8, 9, 0, 0, 0, time.FixedZone("PST", -8*3600))
	first := NextToken("", now)
	if first != "2024-01-08T17:00:00Z" {
		t.Fatalf("expected UTC token, got %q", first)
	}

	second := NextToken(first, now)
	if second != "2024-01-08T17:00:00.000000001Z" {
		t.Fatalf("expected token bumped by a nanosecond, got %q", second)
	}

	later := NextToken(second, now.Add(time.Second))
	if later != "2024-01-08T17:00:01Z" {
		t.Fatalf("expected clock time once it passes the previous token, got %q", later)
	}
}

func TestStamp(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.January, 8, 17, 0, 0, 0, time.UTC)
	doc := NewDocument(KindLive, Key{WeekStart: "2024-01-07", TZID: "UTC"})
	doc.BaseLiveUpdatedAt = "stale"
	doc.Shifts = nil

	stamped := Stamp(doc, &Document{UpdatedAt: "2024-01-08T16:00:00Z", Revision: 4}, now)
	if stamped.Revision != 5 {
		t.Fatalf("expected revision 5, got %d", stamped.Revision)
	}
	if stamped.BaseLiveUpdatedAt != "" {
		t.Fatal("live documents carry no base token")
	}
	if stamped.Shifts == nil {
		t.Fatal("expected shifts normalized to empty slice")
	}
}

func TestKeyValidate(t *testing.T) {
	t.Parallel()

	if err := (Key{WeekStart: "2024-01-07", TZID: "America/New_York"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []Key{
		{WeekStart: "2024-13-01", TZID: "UTC"},
		{WeekStart: "2024-01-07", TZID: ""},
		{WeekStart: "2024-01-07", TZID: "Mars/Olympus"},
	} {
		if err := key.Validate(); !errors.Is(err, ErrConstraintViolation) {
			t.Errorf("%s: expected ErrConstraintViolation, got %v", key, err)
		}
	}
}

package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

// Kind distinguishes the draft copy of a week from the published one.
type Kind string

const (
	KindStage Kind = "stage"
	KindLive  Kind = "live"
)

// Valid reports whether k is a known document kind.
func (k Kind) Valid() bool {
	return k == KindStage || k == KindLive
}

// Key addresses one roster week.
type Key struct {
	WeekStart string `json:"weekStart"`
	TZID      string `json:"tzId"`
}

// Validate checks the week start date and timezone id.
func (k Key) Validate() error {
	if _, err := timegrid.ParseDate(k.WeekStart); err != nil {
		return fmt.Errorf("%w: week start: %v", ErrConstraintViolation, err)
	}
	if strings.TrimSpace(k.TZID) == "" {
		return fmt.Errorf("%w: timezone is required", ErrConstraintViolation)
	}
	if _, err := timegrid.LoadZone(k.TZID); err != nil {
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	return nil
}

func (k Key) String() string {
	return k.WeekStart + "@" + k.TZID
}

// Document is a stored stage or live copy of a roster week. UpdatedAt is the
// optimistic concurrency token assigned by the store on every write.
type Document struct {
	Kind              Kind   `json:"kind"`
	WeekStart         string `json:"weekStart"`
	TZID              string `json:"tzId"`
	UpdatedAt         string `json:"updatedAt"`
	BaseLiveUpdatedAt string `json:"baseLiveUpdatedAt,omitempty"`
	Revision          int64  `json:"revision"`
	roster.Week
}

// Key returns the address of the document.
func (d Document) Key() Key {
	return Key{WeekStart: d.WeekStart, TZID: d.TZID}
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	out.Week = d.Week.Clone()
	return out
}

// NewDocument returns an empty document for key.
func NewDocument(kind Kind, key Key) Document {
	doc := Document{Kind: kind, WeekStart: key.WeekStart, TZID: key.TZID}
	doc.EnsureSlices()
	return doc
}

// WriteCondition guards a document write. With Force the write is
// unconditional. Otherwise an empty ExpectedUpdatedAt means the document must
// not exist yet, and a non-empty one must match the stored token.
type WriteCondition struct {
	ExpectedUpdatedAt string
	Force             bool
}

// Check applies the condition to the currently stored token. exists reports
// whether a document is stored at all.
func (c WriteCondition) Check(exists bool, current string) error {
	if c.Force {
		return nil
	}
	if c.ExpectedUpdatedAt == "" {
		if exists {
			return fmt.Errorf("%w: document already exists at %s", ErrConflict, current)
		}
		return nil
	}
	if !exists {
		return fmt.Errorf("%w: document no longer exists", ErrConflict)
	}
	if current != c.ExpectedUpdatedAt {
		return fmt.Errorf("%w: expected %s, found %s", ErrConflict, c.ExpectedUpdatedAt, current)
	}
	return nil
}

// PublishRequest copies Stage into the live slot and rebases the stored stage
// onto the new live version in a single atomic step.
type PublishRequest struct {
	Stage Document
	// Live guards the live document.
	Live WriteCondition
	// StageCondition guards the stored stage document.
	StageCondition WriteCondition
}

// PublishOutcome carries both documents as written.
type PublishOutcome struct {
	Live  Document
	Stage Document
}

// Snapshot is a point in time archive of a document.
type Snapshot struct {
	ID              string      `json:"id"`
	Kind            Kind        `json:"kind"`
	WeekStart       string      `json:"weekStart"`
	TZID            string      `json:"tzId"`
	Title           string      `json:"title,omitempty"`
	SourceUpdatedAt string      `json:"sourceUpdatedAt"`
	CreatedAt       time.Time   `json:"createdAt"`
	Week            roster.Week `json:"week"`
}

// Key returns the address of the archived week.
func (s Snapshot) Key() Key {
	return Key{WeekStart: s.WeekStart, TZID: s.TZID}
}

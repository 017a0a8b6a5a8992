package application

import (
	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/coverage"
	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/scheduler"
)

// WeekDocs holds both copies of a week. A nil field means the document has
// never been written.
type WeekDocs struct {
	Stage *persistence.Document `json:"stage"`
	Live  *persistence.Document `json:"live"`
}

// Warning codes attached to successful writes.
const (
	WarningStageBehind = "stage_behind_live"
	WarningOverlap     = "overlap"
)

// Warning is a non-fatal observation about a write.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	ShiftID string `json:"shiftId,omitempty"`
}

// WriteResult reports the outcome of a guarded stage write. Conflict is set,
// and nothing is written, when the caller's token is stale.
type WriteResult struct {
	OK        bool                  `json:"ok"`
	Conflict  bool                  `json:"conflict,omitempty"`
	UpdatedAt string                `json:"updatedAt,omitempty"`
	Revision  int64                 `json:"revision,omitempty"`
	Document  *persistence.Document `json:"document,omitempty"`
	Warnings  []Warning             `json:"warnings"`
}

// PublishOptions tunes Publish. ExpectedLiveUpdatedAt falls back to the
// stage's BaseLiveUpdatedAt when empty. Force skips both token checks.
type PublishOptions struct {
	ExpectedLiveUpdatedAt string `json:"expectedLiveUpdatedAt,omitempty"`
	Force                 bool   `json:"force,omitempty"`
	SnapshotTitle         string `json:"snapshotTitle,omitempty"`
}

// PublishResult reports the outcome of Publish.
type PublishResult struct {
	OK         bool                  `json:"ok"`
	Conflict   bool                  `json:"conflict,omitempty"`
	UpdatedAt  string                `json:"updatedAt,omitempty"`
	Live       *persistence.Document `json:"live,omitempty"`
	Stage      *persistence.Document `json:"stage,omitempty"`
	SnapshotID string                `json:"snapshotId,omitempty"`
}

// SnapshotResult reports an archival attempt.
type SnapshotResult struct {
	OK bool   `json:"ok"`
	ID string `json:"id,omitempty"`
}

// ShiftEdit adds or replaces one shift on the stage.
type ShiftEdit struct {
	Key               persistence.Key `json:"key"`
	ExpectedUpdatedAt string          `json:"expectedUpdatedAt"`
	Shift             roster.Shift    `json:"shift"`
	AllowOverlap      bool            `json:"allowOverlap,omitempty"`
}

// ShiftMove drags one or more shifts by DeltaMin minutes around the week.
type ShiftMove struct {
	Key               persistence.Key `json:"key"`
	ExpectedUpdatedAt string          `json:"expectedUpdatedAt"`
	ShiftIDs          []string        `json:"shiftIds"`
	DeltaMin          int             `json:"deltaMin"`
	AllowOverlap      bool            `json:"allowOverlap,omitempty"`
}

// ShiftDelete removes one shift from the stage.
type ShiftDelete struct {
	Key               persistence.Key `json:"key"`
	ExpectedUpdatedAt string          `json:"expectedUpdatedAt"`
	ShiftID           string          `json:"shiftId"`
}

// EditResult reports a stage edit. Blocked is set, and nothing is written,
// when the edit would overlap another shift of the same person and overlaps
// were not allowed.
type EditResult struct {
	WriteResult
	Shifts    []roster.Shift       `json:"shifts"`
	Conflicts []scheduler.Conflict `json:"conflicts"`
	Blocked   bool                 `json:"blocked,omitempty"`
	Bounds    *scheduler.Bounds    `json:"bounds,omitempty"`
}

// ComplianceOptions tunes one compliance evaluation.
type ComplianceOptions struct {
	// SuppressMealBreaks skips the meal period rules, for agents who
	// waived them.
	SuppressMealBreaks bool
}

// ComplianceReport is the evaluation of one stored document.
type ComplianceReport struct {
	Kind               persistence.Kind   `json:"kind"`
	Key                persistence.Key    `json:"key"`
	UpdatedAt          string             `json:"updatedAt"`
	SuppressMealBreaks bool               `json:"suppressMealBreaks"`
	Issues             []compliance.Issue `json:"issues"`
	Hard               int                `json:"hard"`
	Soft               int                `json:"soft"`
}

// CoverageReport bins one stored document's shifts across the week.
type CoverageReport struct {
	Kind       persistence.Kind     `json:"kind"`
	Key        persistence.Key      `json:"key"`
	BinMinutes int                  `json:"binMinutes"`
	Bins       []coverage.Bin       `json:"bins"`
	Peak       []coverage.Bin       `json:"peak"`
	Gaps       []scheduler.Interval `json:"gaps"`
}

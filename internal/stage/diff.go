// Package stage compares a draft week against its published counterpart and
// derives draft documents from live ones.
package stage

import (
	"github.com/example/shift-roster/internal/roster"
)

// Options extends the fields compared when classifying a shift as updated.
// The zero value compares Person, Day, Start, End and the effective end day.
type Options struct {
	IncludeSegments bool
	IncludeNotes    bool
}

// ShiftChange pairs the live and stage versions of an updated shift.
type ShiftChange struct {
	ID    string       `json:"id"`
	Live  roster.Shift `json:"live"`
	Stage roster.Shift `json:"stage"`
}

// ShiftDiff holds three disjoint sets keyed by shift ID. Added and Updated
// follow stage order; Removed follows live order.
type ShiftDiff struct {
	Added   []roster.Shift `json:"added"`
	Updated []ShiftChange  `json:"updated"`
	Removed []roster.Shift `json:"removed"`
}

// Empty reports whether nothing changed.
func (d ShiftDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Diff compares shifts with the default field set.
func Diff(live, stage []roster.Shift) ShiftDiff {
	return DiffWith(live, stage, Options{})
}

// DiffWith compares shifts using opts. When an ID repeats, the first
// occurrence is the one compared.
func DiffWith(live, stage []roster.Shift, opts Options) ShiftDiff {
	liveByID := make(map[string]roster.Shift, len(live))
	for _, s := range live {
		if _, ok := liveByID[s.ID]; !ok {
			liveByID[s.ID] = s
		}
	}

	diff := ShiftDiff{
		Added:   make([]roster.Shift, 0),
		Updated: make([]ShiftChange, 0),
		Removed: make([]roster.Shift, 0),
	}
	seen := make(map[string]bool, len(stage))
	for _, s := range stage {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		before, ok := liveByID[s.ID]
		if !ok {
			diff.Added = append(diff.Added, s.Clone())
			continue
		}
		if !ShiftsEqual(before, s, opts) {
			diff.Updated = append(diff.Updated, ShiftChange{ID: s.ID, Live: before.Clone(), Stage: s.Clone()})
		}
	}

	removed := make(map[string]bool)
	for _, s := range live {
		if !seen[s.ID] && !removed[s.ID] {
			removed[s.ID] = true
			diff.Removed = append(diff.Removed, s.Clone())
		}
	}
	return diff
}

// ShiftsEqual compares a and b on the field set selected by opts.
func ShiftsEqual(a, b roster.Shift, opts Options) bool {
	if a.Person != b.Person || a.Day != b.Day || a.Start != b.Start || a.End != b.End {
		return false
	}
	if a.EffectiveEndDay() != b.EffectiveEndDay() {
		return false
	}
	if opts.IncludeNotes && a.Notes != b.Notes {
		return false
	}
	if opts.IncludeSegments && !segmentsEqual(a.Segments, b.Segments) {
		return false
	}
	return true
}

func segmentsEqual(a, b []roster.PostureSegment) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PTOChange pairs the live and stage versions of an updated PTO entry.
type PTOChange struct {
	ID    string     `json:"id"`
	Live  roster.PTO `json:"live"`
	Stage roster.PTO `json:"stage"`
}

// PTODiff mirrors ShiftDiff for PTO entries.
type PTODiff struct {
	Added   []roster.PTO `json:"added"`
	Updated []PTOChange  `json:"updated"`
	Removed []roster.PTO `json:"removed"`
}

// Empty reports whether nothing changed.
func (d PTODiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// DiffPTO compares PTO entries by ID on person, dates and notes.
func DiffPTO(live, stage []roster.PTO) PTODiff {
	liveByID := make(map[string]roster.PTO, len(live))
	for _, p := range live {
		if _, ok := liveByID[p.ID]; !ok {
			liveByID[p.ID] = p
		}
	}

	diff := PTODiff{
		Added:   make([]roster.PTO, 0),
		Updated: make([]PTOChange, 0),
		Removed: make([]roster.PTO, 0),
	}
	seen := make(map[string]bool, len(stage))
	for _, p := range stage {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		before, ok := liveByID[p.ID]
		switch {
		case !ok:
			diff.Added = append(diff.Added, p)
		case before != p:
			diff.Updated = append(diff.Updated, PTOChange{ID: p.ID, Live: before, Stage: p})
		}
	}
	for _, p := range live {
		if !seen[p.ID] {
			seen[p.ID] = true
			diff.Removed = append(diff.Removed, p)
		}
	}
	return diff
}

// WeekDiff is the full comparison of a stage week against live.
type WeekDiff struct {
	Shifts ShiftDiff `json:"shifts"`
	PTO    PTODiff   `json:"pto"`
}

// Empty reports whether publishing stage would change nothing the diff
// tracks.
func (d WeekDiff) Empty() bool {
	return d.Shifts.Empty() && d.PTO.Empty()
}

// DiffWeeks compares shifts (with opts) and PTO of two weeks.
func DiffWeeks(live, stage roster.Week, opts Options) WeekDiff {
	return WeekDiff{
		Shifts: DiffWith(live.Shifts, stage.Shifts, opts),
		PTO:    DiffPTO(live.PTO, stage.PTO),
	}
}

package scheduler

import (
	"sort"

	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

// Interval is a half-open [StartMin, EndMin) range of minutes on one weekday.
type Interval struct {
	Day      timegrid.Day
	StartMin int
	EndMin   int
}

// ConflictType describes the type of conflict detected between shifts.
type ConflictType string

const (
	// ConflictTypePerson indicates a person is double-booked.
	ConflictTypePerson ConflictType = "person"
)

// Conflict details an overlapping shift relation that callers can present to users.
type Conflict struct {
	WithShiftID string       `json:"withShiftId"`
	Type        ConflictType `json:"type"`
	Person      string       `json:"person"`
	Day         timegrid.Day `json:"day"`
	StartMin    int          `json:"startMin"`
	EndMin      int          `json:"endMin"`
}

// Segments splits shift into day-bounded intervals. An explicit EndDay on a
// different day always yields two intervals; a shift ending at 24:00 never
// splits. Malformed shifts yield nothing.
func Segments(shift roster.Shift) []Interval {
	if !shift.Day.Valid() {
		return nil
	}
	start, err := timegrid.ToMinutes(shift.Start)
	if err != nil || start == timegrid.MinutesPerDay {
		return nil
	}
	end, err := timegrid.ToMinutes(shift.End)
	if err != nil {
		return nil
	}

	if shift.EndDay != nil && *shift.EndDay != shift.Day {
		return splitAtMidnight(shift.Day, *shift.EndDay, start, end)
	}
	if end == timegrid.MinutesPerDay {
		return []Interval{{Day: shift.Day, StartMin: start, EndMin: end}}
	}
	if end <= start {
		return splitAtMidnight(shift.Day, timegrid.NextDay(shift.Day), start, end)
	}
	return []Interval{{Day: shift.Day, StartMin: start, EndMin: end}}
}

func splitAtMidnight(day, endDay timegrid.Day, start, end int) []Interval {
	out := make([]Interval, 0, 2)
	if start < timegrid.MinutesPerDay {
		out = append(out, Interval{Day: day, StartMin: start, EndMin: timegrid.MinutesPerDay})
	}
	if end > 0 {
		out = append(out, Interval{Day: endDay, StartMin: 0, EndMin: end})
	}
	return out
}

// ShiftsOverlap reports whether a and b share any minute. Touching shifts do
// not overlap.
func ShiftsOverlap(a, b roster.Shift) bool {
	_, ok := firstOverlap(Segments(a), Segments(b))
	return ok
}

func firstOverlap(as, bs []Interval) (Interval, bool) {
	for _, x := range as {
		for _, y := range bs {
			if x.Day != y.Day {
				continue
			}
			lo := max(x.StartMin, y.StartMin)
			hi := min(x.EndMin, y.EndMin)
			if lo < hi {
				return Interval{Day: x.Day, StartMin: lo, EndMin: hi}, true
			}
		}
	}
	return Interval{}, false
}

// DetectConflicts identifies conflicts for the candidate shift against existing ones.
// Only shifts of the same person count, and an existing shift with the
// candidate's id is the candidate itself.
func DetectConflicts(existing []roster.Shift, candidate roster.Shift) []Conflict {
	candidateSegs := Segments(candidate)
	conflicts := make([]Conflict, 0)
	if len(candidateSegs) == 0 {
		return conflicts
	}
	for _, other := range existing {
		if other.Person != candidate.Person {
			continue
		}
		if candidate.ID != "" && other.ID == candidate.ID {
			continue
		}
		overlap, ok := firstOverlap(candidateSegs, Segments(other))
		if !ok {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithShiftID: other.ID,
			Type:        ConflictTypePerson,
			Person:      candidate.Person,
			Day:         overlap.Day,
			StartMin:    overlap.StartMin,
			EndMin:      overlap.EndMin,
		})
	}
	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].WithShiftID < conflicts[j].WithShiftID
	})
	return conflicts
}

// Conflicts is DetectConflicts with the candidate first.
func Conflicts(candidate roster.Shift, all []roster.Shift) []Conflict {
	return DetectConflicts(all, candidate)
}

// HasAnyOverlap reports whether candidate collides with another shift of the
// same person.
func HasAnyOverlap(candidate roster.Shift, all []roster.Shift) bool {
	return len(DetectConflicts(all, candidate)) > 0
}

package scheduler

import (
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

// Bounds is how far, in minutes, a moving group of shifts can travel in each
// direction before touching a stationary shift of the same person.
type Bounds struct {
	MaxLeft  int `json:"maxLeft"`
	MaxRight int `json:"maxRight"`
}

// DragBounds computes the free travel for moving against the stationary shifts
// in all. Shifts in all sharing an id with a moving shift are treated as
// moving. Stationary shifts are also considered one week earlier and later so
// dragging across the week boundary is bounded too. A group that already
// overlaps something cannot move at all.
func DragBounds(moving []roster.Shift, all []roster.Shift) Bounds {
	bounds := Bounds{MaxLeft: timegrid.MinutesPerWeek, MaxRight: timegrid.MinutesPerWeek}

	movingIDs := make(map[string]bool, len(moving))
	for _, m := range moving {
		movingIDs[m.ID] = true
	}

	for _, m := range moving {
		mStart, mEnd, ok := weekSpan(m)
		if !ok {
			continue
		}
		for _, s := range all {
			if s.Person != m.Person || movingIDs[s.ID] {
				continue
			}
			sStart, sEnd, ok := weekSpan(s)
			if !ok {
				continue
			}
			for _, wrap := range []int{-timegrid.MinutesPerWeek, 0, timegrid.MinutesPerWeek} {
				lo, hi := sStart+wrap, sEnd+wrap
				switch {
				case hi <= mStart:
					bounds.MaxLeft = min(bounds.MaxLeft, mStart-hi)
				case lo >= mEnd:
					bounds.MaxRight = min(bounds.MaxRight, lo-mEnd)
				default:
					return Bounds{}
				}
			}
		}
	}
	return bounds
}

// weekSpan returns the absolute [start, end) minutes of shift on the weekly
// grid. end may run past MinutesPerWeek for shifts that leave Saturday.
func weekSpan(shift roster.Shift) (int, int, bool) {
	if len(Segments(shift)) == 0 {
		return 0, 0, false
	}
	duration := shift.Duration()
	if duration <= 0 {
		return 0, 0, false
	}
	start := timegrid.WeekMinute(shift.Day, shift.StartMinute())
	return start, start + duration, true
}

// ApplyDelta moves shift by deltaMin minutes around the circular week keeping
// its duration and attached segments. The result is normalized.
func ApplyDelta(shift roster.Shift, deltaMin int) (roster.Shift, error) {
	normalized, err := roster.NormalizeShiftEndDay(shift)
	if err != nil {
		return roster.Shift{}, err
	}
	duration := normalized.Duration()
	start := timegrid.WrapWeek(timegrid.WeekMinute(normalized.Day, normalized.StartMinute()) + deltaMin)
	startDay := timegrid.Day(start / timegrid.MinutesPerDay)
	startMin := start % timegrid.MinutesPerDay
	end := startMin + duration

	moved := normalized.Clone()
	moved.Day = startDay
	moved.Start = timegrid.MinutesToHHMM(startMin)
	moved.EndDay = nil
	switch {
	case end == timegrid.MinutesPerDay:
		moved.End = timegrid.EndOfDay
	case end > timegrid.MinutesPerDay:
		moved.End = timegrid.MinutesToHHMM(end)
		next := timegrid.NextDay(startDay)
		moved.EndDay = &next
	default:
		moved.End = timegrid.MinutesToHHMM(end)
	}
	return roster.NormalizeShiftEndDay(moved)
}

// Package posture combines the task segments attached to a shift with the
// standing calendar assignments that fall inside it.
package posture

import (
	"sort"

	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

// CandidatesForShift converts the calendar segments belonging to the shift's
// person into shift-relative segments. Only segments that intersect the shift
// on the circular week are returned; they are not clipped.
func CandidatesForShift(shift roster.Shift, calendar []roster.CalendarSegment) []roster.PostureSegment {
	duration := shift.Duration()
	if duration <= 0 {
		return nil
	}
	shiftStart := timegrid.WeekMinute(shift.Day, shift.StartMinute())

	out := make([]roster.PostureSegment, 0)
	for _, c := range calendar {
		if c.Person != shift.Person || c.TaskID == "" {
			continue
		}
		calStart, calEnd := c.WeekInterval()
		length := calEnd - calStart
		if length <= 0 {
			continue
		}
		for _, wrap := range []int{-timegrid.MinutesPerWeek, 0, timegrid.MinutesPerWeek} {
			offset := calStart + wrap - shiftStart
			if offset < duration && offset+length > 0 {
				out = append(out, roster.PostureSegment{TaskID: c.TaskID, StartOffsetMin: offset, DurationMin: length})
			}
		}
	}
	return out
}

// Merge returns the ordered, non-overlapping posture segments for shift.
// Attached segments are kept unchanged. Candidates are clipped to the shift,
// dropped whole when they touch an attached segment, and otherwise accepted in
// start order unless an earlier accepted candidate already covers them.
func Merge(shift roster.Shift, candidates []roster.PostureSegment) []roster.PostureSegment {
	duration := shift.Duration()
	attached := append([]roster.PostureSegment(nil), shift.Segments...)

	clipped := make([]roster.PostureSegment, 0, len(candidates))
	for _, c := range candidates {
		if seg, ok := roster.ClampSegment(c, duration); ok {
			clipped = append(clipped, seg)
		}
	}
	sort.SliceStable(clipped, func(i, j int) bool {
		return clipped[i].StartOffsetMin < clipped[j].StartOffsetMin
	})

	accepted := make([]roster.PostureSegment, 0, len(clipped))
	for _, c := range clipped {
		if overlapsAny(c, attached) || overlapsAny(c, accepted) {
			continue
		}
		accepted = append(accepted, c)
	}

	out := make([]roster.PostureSegment, 0, len(attached)+len(accepted))
	out = append(out, attached...)
	out = append(out, accepted...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartOffsetMin < out[j].StartOffsetMin
	})
	return out
}

// MergeForShift is Merge fed with the shift's calendar candidates.
func MergeForShift(shift roster.Shift, calendar []roster.CalendarSegment) []roster.PostureSegment {
	return Merge(shift, CandidatesForShift(shift, calendar))
}

// BreakMinutes sums the minutes of segments whose task is break-classified.
// Unknown task ids count as work.
func BreakMinutes(segments []roster.PostureSegment, tasks map[string]roster.Task) int {
	total := 0
	for _, seg := range segments {
		task, ok := tasks[seg.TaskID]
		if !ok || !task.IsBreak() || seg.DurationMin <= 0 {
			continue
		}
		total += seg.DurationMin
	}
	return total
}

func overlapsAny(seg roster.PostureSegment, others []roster.PostureSegment) bool {
	for _, o := range others {
		if max(seg.StartOffsetMin, o.StartOffsetMin) < min(seg.EndOffsetMin(), o.EndOffsetMin()) {
			return true
		}
	}
	return false
}

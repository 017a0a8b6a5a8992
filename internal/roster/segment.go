package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/shift-roster/internal/timegrid"
)

// PostureSegment is a task sub-assignment placed relative to the start of its
// owning shift.
type PostureSegment struct {
	TaskID         string `json:"taskId"`
	StartOffsetMin int    `json:"startOffsetMin"`
	DurationMin    int    `json:"durationMin"`
}

// EndOffsetMin returns the exclusive end offset of the segment.
func (p PostureSegment) EndOffsetMin() int {
	return p.StartOffsetMin + p.DurationMin
}

// Validate checks the segment shape independent of any shift.
func (p PostureSegment) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(p.TaskID) == "" {
		verr.Add("taskId", "task is required", nil)
	}
	if p.DurationMin <= 0 {
		verr.Add("durationMin", "duration must be positive", ErrNonPositiveDuration)
	}
	if p.StartOffsetMin < 0 {
		verr.Add("startOffsetMin", "offset must not be negative", nil)
	}
	return verr.OrNil()
}

// ClampSegment restricts seg to [0, shiftDuration]. ok is false when nothing
// of the segment remains inside the shift.
func ClampSegment(seg PostureSegment, shiftDuration int) (PostureSegment, bool) {
	start := seg.StartOffsetMin
	end := seg.EndOffsetMin()
	if start < 0 {
		start = 0
	}
	if end > shiftDuration {
		end = shiftDuration
	}
	if end <= start {
		return PostureSegment{}, false
	}
	return PostureSegment{TaskID: seg.TaskID, StartOffsetMin: start, DurationMin: end - start}, true
}

// CalendarSegment is a standing weekly posture assignment. It only becomes a
// PostureSegment after it is merged against a concrete shift.
type CalendarSegment struct {
	ID     string `json:"id"`
	Person string `json:"person"`
	Day    Day    `json:"day"`
	Start  string `json:"start"`
	End    string `json:"end"`
	EndDay *Day   `json:"endDay,omitempty"`
	TaskID string `json:"taskId"`
}

// AsShift views the calendar segment as a shift so interval helpers can be
// shared.
func (c CalendarSegment) AsShift() Shift {
	return Shift{ID: c.ID, Person: c.Person, Day: c.Day, Start: c.Start, End: c.End, EndDay: c.EndDay}
}

// Validate checks the calendar segment times and task reference.
func (c CalendarSegment) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(c.TaskID) == "" {
		verr.Add("taskId", "task is required", nil)
	}
	if err := c.AsShift().Validate(); err != nil {
		var shiftErr *ValidationError
		if errors.As(err, &shiftErr) {
			verr.Merge("", shiftErr)
		}
	}
	return verr.OrNil()
}

// WeekInterval returns the absolute [start, end) minutes of the calendar
// segment on the weekly grid. end may exceed MinutesPerWeek for a Sat segment
// running into Sun.
func (c CalendarSegment) WeekInterval() (int, int) {
	s := c.AsShift()
	start := timegrid.WeekMinute(c.Day, s.StartMinute())
	return start, start + s.Duration()
}

func (c CalendarSegment) String() string {
	return fmt.Sprintf("%s %s %s-%s %s", c.Person, c.Day, c.Start, c.End, c.TaskID)
}

package roster

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/shift-roster/internal/timegrid"
)

// Day is re-exported so callers working with roster records rarely need the
// timegrid import.
type Day = timegrid.Day

// Shift is a recurring weekly block of work assigned to one person on one
// weekday.
type Shift struct {
	ID       string           `json:"id"`
	Person   string           `json:"person"`
	Day      Day              `json:"day"`
	Start    string           `json:"start"`
	End      string           `json:"end"`
	EndDay   *Day             `json:"endDay,omitempty"`
	Notes    string           `json:"notes,omitempty"`
	Segments []PostureSegment `json:"segments,omitempty"`
}

// StartMinute returns the start minute of day, or 0 when Start is malformed.
func (s Shift) StartMinute() int {
	return timegrid.MinutesOrZero(s.Start)
}

// EndMinute returns the end minute of day, or 0 when End is malformed.
func (s Shift) EndMinute() int {
	return timegrid.MinutesOrZero(s.End)
}

// IsOvernight reports whether the shift ends on a later weekday than it starts,
// either by an explicit EndDay or because End does not follow Start.
func (s Shift) IsOvernight() bool {
	if s.EndDay != nil && *s.EndDay != s.Day {
		return true
	}
	if s.End == timegrid.EndOfDay {
		return false
	}
	return s.EndMinute() <= s.StartMinute()
}

// EffectiveEndDay returns the weekday the shift ends on after normalization.
func (s Shift) EffectiveEndDay() Day {
	if s.EndDay != nil {
		return *s.EndDay
	}
	if s.IsOvernight() {
		return timegrid.NextDay(s.Day)
	}
	return s.Day
}

// Duration returns the length of the shift in minutes. Malformed times fall
// back to zero so rendering code never has to handle an error.
func (s Shift) Duration() int {
	start, err := timegrid.ToMinutes(s.Start)
	if err != nil || start == timegrid.MinutesPerDay {
		return 0
	}
	end, err := timegrid.ToMinutes(s.End)
	if err != nil {
		return 0
	}
	if s.IsOvernight() {
		return (timegrid.MinutesPerDay - start) + end
	}
	return end - start
}

// Validate checks the shift shape and returns a *ValidationError listing every
// problem found.
func (s Shift) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(s.Person) == "" {
		verr.Add("person", "person is required", nil)
	}
	if !s.Day.Valid() {
		verr.Add("day", "invalid day code", ErrInvalidDay)
	}
	start, startErr := timegrid.ToMinutes(s.Start)
	if startErr != nil || start == timegrid.MinutesPerDay {
		verr.Add("start", fmt.Sprintf("invalid start time %q", s.Start), ErrInvalidTime)
	}
	_, endErr := timegrid.ToMinutes(s.End)
	if endErr != nil {
		verr.Add("end", fmt.Sprintf("invalid end time %q", s.End), ErrInvalidTime)
	}
	if s.EndDay != nil && !s.EndDay.Valid() {
		verr.Add("endDay", "invalid end day code", ErrInvalidDay)
	}
	if verr.HasErrors() {
		return verr
	}

	if s.EndDay != nil && *s.EndDay != s.Day && *s.EndDay != timegrid.NextDay(s.Day) {
		verr.Add("endDay", "end day must be the day after the start day", ErrInvalidDay)
	}
	if s.EndDay != nil && *s.EndDay == s.Day && s.End != timegrid.EndOfDay && s.EndMinute() <= s.StartMinute() {
		verr.Add("end", "end must be after start on the same day", ErrNonPositiveDuration)
	}
	if s.EndDay != nil && *s.EndDay != s.Day && s.End == timegrid.EndOfDay {
		verr.Add("end", "24:00 cannot end an overnight shift", ErrInvalidTime)
	}

	duration := s.Duration()
	if duration <= 0 || duration > timegrid.MinutesPerDay {
		verr.Add("duration", "shift duration must be within (0, 24h]", ErrNonPositiveDuration)
	}
	for i, seg := range s.Segments {
		if err := seg.Validate(); err != nil {
			var segErr *ValidationError
			if errors.As(err, &segErr) {
				verr.Merge(fmt.Sprintf("segments[%d].", i), segErr)
			}
		}
	}
	return verr.OrNil()
}

// Clone returns a deep copy of the shift.
func (s Shift) Clone() Shift {
	out := s
	if s.EndDay != nil {
		d := *s.EndDay
		out.EndDay = &d
	}
	if s.Segments != nil {
		out.Segments = append([]PostureSegment(nil), s.Segments...)
	}
	return out
}

// NormalizeShiftEndDay validates shift and makes EndDay explicit for overnight
// shifts. Same-day shifts have EndDay cleared.
func NormalizeShiftEndDay(shift Shift) (Shift, error) {
	out := shift.Clone()
	if err := out.Validate(); err != nil {
		return Shift{}, err
	}
	if out.IsOvernight() {
		next := timegrid.NextDay(out.Day)
		out.EndDay = &next
	} else {
		out.EndDay = nil
	}
	return out, nil
}

// NormalizeShifts normalizes every shift in order and stops at the first
// invalid one, reporting its index.
func NormalizeShifts(shifts []Shift) ([]Shift, error) {
	out := make([]Shift, 0, len(shifts))
	for i, s := range shifts {
		n, err := NormalizeShiftEndDay(s)
		if err != nil {
			return nil, fmt.Errorf("shift %d (%s): %w", i, s.ID, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// ShiftsForPerson filters shifts down to the given person preserving order.
func ShiftsForPerson(shifts []Shift, person string) []Shift {
	out := make([]Shift, 0)
	for _, s := range shifts {
		if s.Person == person {
			out = append(out, s)
		}
	}
	return out
}

// DayPtr is a small helper for building optional day fields.
func DayPtr(d Day) *Day {
	return &d
}

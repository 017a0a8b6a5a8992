package timegrid

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Day is a weekday column on the roster grid. The zero value is Sunday so the
// ordering matches time.Weekday.
type Day int

const (
	Sun Day = iota
	Mon
	Tue
	Wed
	Thu
	Fri
	Sat
)

// ErrInvalidDay indicates an unknown weekday code.
var ErrInvalidDay = errors.New("timegrid: invalid day code")

var dayCodes = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Days returns the fixed weekday sequence starting at Sunday.
func Days() []Day {
	return []Day{Sun, Mon, Tue, Wed, Thu, Fri, Sat}
}

// ParseDay resolves a weekday code. Matching ignores case.
func ParseDay(code string) (Day, error) {
	trimmed := strings.TrimSpace(code)
	for i, c := range dayCodes {
		if strings.EqualFold(c, trimmed) {
			return Day(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, code)
}

// Valid reports whether d is one of the seven weekday columns.
func (d Day) Valid() bool {
	return d >= Sun && d <= Sat
}

// String returns the weekday code.
func (d Day) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Day(%d)", int(d))
	}
	return dayCodes[d]
}

// Weekday converts d into the standard library weekday.
func (d Day) Weekday() time.Weekday {
	return time.Weekday(d)
}

// MarshalJSON encodes the weekday code.
func (d Day) MarshalJSON() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, int(d))
	}
	return json.Marshal(dayCodes[d])
}

// UnmarshalJSON decodes a weekday code.
func (d *Day) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDay, string(data))
	}
	parsed, err := ParseDay(code)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DayShift moves day by delta columns around the circular week.
func DayShift(day Day, delta int) Day {
	return Day(((int(day)+delta)%7 + 7) % 7)
}

// NextDay returns the following weekday, wrapping Sat to Sun.
func NextDay(day Day) Day {
	return DayShift(day, 1)
}

// PrevDay returns the preceding weekday, wrapping Sun to Sat.
func PrevDay(day Day) Day {
	return DayShift(day, -1)
}

// WeekMinute returns the absolute minute of day/minute on the weekly grid.
func WeekMinute(day Day, minute int) int {
	return int(day)*MinutesPerDay + minute
}

// WrapWeek folds an absolute minute onto [0,10080).
func WrapWeek(min int) int {
	return ((min % MinutesPerWeek) + MinutesPerWeek) % MinutesPerWeek
}

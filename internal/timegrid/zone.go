package timegrid

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zone database must not depend on the host
)

// WeekStartLayout is the layout of week start and PTO dates.
const WeekStartLayout = "2006-01-02"

// ErrInvalidZone indicates a timezone identifier that cannot be resolved.
var ErrInvalidZone = errors.New("timegrid: invalid timezone")

// LoadZone resolves an IANA timezone identifier. An empty id means UTC.
func LoadZone(tzID string) (*time.Location, error) {
	id := strings.TrimSpace(tzID)
	if id == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidZone, tzID)
	}
	return loc, nil
}

// ParseDate parses a YYYY-MM-DD calendar date at UTC midnight.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(WeekStartLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("timegrid: invalid date %q: %w", date, err)
	}
	return t, nil
}

// WeekAnchor returns noon of the week start date in the given zone. Noon keeps
// the instant clear of DST transitions, which happen around midnight.
func WeekAnchor(weekStart, tzID string) (time.Time, error) {
	date, err := ParseDate(weekStart)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadZone(tzID)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 12, 0, 0, 0, loc), nil
}

// OffsetMinutes returns how many minutes targetTZ is ahead of baseTZ at the
// instant at.
func OffsetMinutes(baseTZ, targetTZ string, at time.Time) (int, error) {
	base, err := LoadZone(baseTZ)
	if err != nil {
		return 0, err
	}
	target, err := LoadZone(targetTZ)
	if err != nil {
		return 0, err
	}
	_, baseOffset := at.In(base).Zone()
	_, targetOffset := at.In(target).Zone()
	return (targetOffset - baseOffset) / 60, nil
}

// DateForDay returns the YYYY-MM-DD date of day within the week starting at
// weekStart. The week start itself may fall on any weekday; day is counted
// forward from it.
func DateForDay(weekStart string, day Day) (string, error) {
	start, err := ParseDate(weekStart)
	if err != nil {
		return "", err
	}
	delta := (int(day) - int(start.Weekday()) + 7) % 7
	return start.AddDate(0, 0, delta).Format(WeekStartLayout), nil
}

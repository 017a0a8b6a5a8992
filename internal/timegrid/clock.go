package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinutesPerDay is the length of one weekday column.
	MinutesPerDay = 1440
	// MinutesPerWeek is the length of the circular weekly grid.
	MinutesPerWeek = 7 * MinutesPerDay
	// EndOfDay is the only value accepted as "24:00" and only as a shift end.
	EndOfDay = "24:00"
)

// ErrInvalidTime indicates a string that is not a valid HH:MM minute-of-day.
var ErrInvalidTime = errors.New("timegrid: invalid HH:MM time")

// IsValidHHMM reports whether s matches HH:MM with 0<=h<=24, 0<=m<=59 and
// h==24 only when m==0.
func IsValidHHMM(s string) bool {
	_, err := parseHHMM(s)
	return err == nil
}

// ToMinutes converts HH:MM into a minute of day in [0,1440]. "24:00" maps to
// 1440. Malformed input is reported as ErrInvalidTime.
func ToMinutes(hhmm string) (int, error) {
	return parseHHMM(hhmm)
}

// MinutesOrZero is the lenient variant of ToMinutes for display code; malformed
// input yields 0.
func MinutesOrZero(hhmm string) int {
	m, err := parseHHMM(hhmm)
	if err != nil {
		return 0
	}
	return m
}

// MinutesToHHMM wraps min onto a single day and formats it. It never returns
// "24:00"; use EndHHMM when the end-of-day sentinel is needed.
func MinutesToHHMM(min int) string {
	wrapped := Wrap(min)
	return fmt.Sprintf("%02d:%02d", wrapped/60, wrapped%60)
}

// EndHHMM formats an end-of-interval minute, keeping 1440 as "24:00".
func EndHHMM(min int) string {
	if min == MinutesPerDay {
		return EndOfDay
	}
	return MinutesToHHMM(min)
}

// Wrap folds any minute value onto [0,1440).
func Wrap(min int) int {
	return ((min % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// FloorDiv is integer division rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func parseHHMM(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || !isDigits(hh) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || !isDigits(mm) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*60 + m, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

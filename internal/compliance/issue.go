package compliance

import (
	"sort"

	"github.com/example/shift-roster/internal/timegrid"
)

// Severity grades an issue.
type Severity string

const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
)

// Rule identifiers emitted in Issue.Rule.
const (
	RuleDailyOT            = "daily_ot_8h"
	RuleDailyDoubleTime    = "daily_doubletime_12h"
	RuleMealMissing        = "meal_missing_30_after_5h"
	RuleSecondMealMissing  = "meal_second_missing_after_10h"
	RuleRestBreakShort     = "rest_break_short"
	RuleWeeklyOT           = "weekly_ot_40h"
	RuleNoDayOff           = "no_day_off_in_7"
	RuleSeventhDayDouble   = "seventh_day_doubletime_after_8h"
	RuleShortRestBetween   = "short_rest_between_shifts_8h"
	RuleShortRestPredSched = "short_rest_pred_sched_10h"
)

// Issue is one detected rule violation. It is a computed value and never stored.
type Issue struct {
	Rule     string        `json:"rule"`
	Severity Severity      `json:"severity"`
	Person   string        `json:"person"`
	Day      *timegrid.Day `json:"day,omitempty"`
	ShiftID  string        `json:"shiftId,omitempty"`
	Minutes  int           `json:"minutes,omitempty"`
	Details  string        `json:"details,omitempty"`
}

// Counts returns the number of hard and soft issues.
func Counts(issues []Issue) (hard, soft int) {
	for _, i := range issues {
		switch i.Severity {
		case SeverityHard:
			hard++
		case SeveritySoft:
			soft++
		}
	}
	return hard, soft
}

// ForPerson filters issues down to one person.
func ForPerson(issues []Issue, person string) []Issue {
	out := make([]Issue, 0)
	for _, i := range issues {
		if i.Person == person {
			out = append(out, i)
		}
	}
	return out
}

func sortIssues(issues []Issue) {
	dayKey := func(d *timegrid.Day) int {
		if d == nil {
			return 7
		}
		return int(*d)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.Person != b.Person {
			return a.Person < b.Person
		}
		if dayKey(a.Day) != dayKey(b.Day) {
			return dayKey(a.Day) < dayKey(b.Day)
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.ShiftID < b.ShiftID
	})
}

// Package compliance checks rostered shifts against a configurable set of
// labor rules and reports the violations as data.
package compliance

import (
	"fmt"
	"sort"

	"github.com/example/shift-roster/internal/posture"
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
	"github.com/example/shift-roster/internal/tzproject"
)

// Input is everything Evaluate looks at. Shifts and calendar segments are
// anchored to BaseTZ.
type Input struct {
	WeekStart          string
	BaseTZ             string
	Shifts             []roster.Shift
	Agents             []roster.Agent
	Tasks              []roster.Task
	CalendarSegs       []roster.CalendarSegment
	PTO                []roster.PTO
	Laws               *LawsConfig
	SuppressMealBreaks bool
}

// Evaluate runs every rule for every person with at least one shift.
// Each person's shifts are localized to the person's own timezone first.
// Errors are returned only for an unusable week start or timezone.
func Evaluate(in Input) ([]Issue, error) {
	anchor, err := timegrid.WeekAnchor(in.WeekStart, in.BaseTZ)
	if err != nil {
		return nil, err
	}
	firstDay := timegrid.Day(anchor.Weekday())
	laws := Resolve(in.Laws)
	tasks := roster.TaskIndex(in.Tasks)

	agents := make(map[string]roster.Agent, len(in.Agents))
	for _, a := range in.Agents {
		agents[a.ID] = a
	}
	byPerson := make(map[string][]roster.Shift)
	for _, s := range in.Shifts {
		byPerson[s.Person] = append(byPerson[s.Person], s)
	}
	persons := make([]string, 0, len(byPerson))
	for p := range byPerson {
		persons = append(persons, p)
	}
	sort.Strings(persons)

	issues := make([]Issue, 0)
	for _, person := range persons {
		tz := in.BaseTZ
		if a, ok := agents[person]; ok && a.TZID != "" {
			tz = a.TZID
		}
		offset, err := timegrid.OffsetMinutes(in.BaseTZ, tz, anchor)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", person, err)
		}

		working, err := workingShifts(in, person, byPerson[person])
		if err != nil {
			return nil, err
		}
		e := evaluator{
			person:   person,
			laws:     laws,
			tasks:    tasks,
			calendar: in.CalendarSegs,
			suppress: in.SuppressMealBreaks,
			firstDay: firstDay,
		}
		issues = append(issues, e.run(working, offset)...)
	}
	sortIssues(issues)
	return issues, nil
}

// workingShifts drops shifts that start on a date the person has off.
func workingShifts(in Input, person string, shifts []roster.Shift) ([]roster.Shift, error) {
	if len(in.PTO) == 0 {
		return shifts, nil
	}
	out := make([]roster.Shift, 0, len(shifts))
	for _, s := range shifts {
		if !s.Day.Valid() {
			continue
		}
		date, err := timegrid.DateForDay(in.WeekStart, s.Day)
		if err != nil {
			return nil, err
		}
		if roster.IsOff(person, date, in.PTO) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type evaluator struct {
	person   string
	laws     Laws
	tasks    map[string]roster.Task
	calendar []roster.CalendarSegment
	suppress bool
	firstDay timegrid.Day
}

type dayPieces struct {
	total  int
	pieces []tzproject.Piece
}

func (e evaluator) run(shifts []roster.Shift, offset int) []Issue {
	pieces := tzproject.ProjectPieces(shifts, offset)
	var days [7]dayPieces
	for _, p := range pieces {
		d := &days[p.Shift.Day]
		d.total += p.Shift.Duration()
		d.pieces = append(d.pieces, p)
	}
	for i := range days {
		sort.SliceStable(days[i].pieces, func(a, b int) bool {
			return days[i].pieces[a].Shift.StartMinute() < days[i].pieces[b].Shift.StartMinute()
		})
	}

	issues := make([]Issue, 0)
	issues = append(issues, e.daily(days)...)
	issues = append(issues, e.perShift(shifts, offset)...)
	issues = append(issues, e.weekly(days)...)
	issues = append(issues, e.restBetween(days)...)
	return issues
}

func (e evaluator) issue(rule string, sev Severity, day *timegrid.Day, shiftID string, minutes int, details string) Issue {
	return Issue{Rule: rule, Severity: sev, Person: e.person, Day: day, ShiftID: shiftID, Minutes: minutes, Details: details}
}

func (e evaluator) daily(days [7]dayPieces) []Issue {
	out := make([]Issue, 0)
	for _, day := range timegrid.Days() {
		total := days[day].total
		switch {
		case total >= e.laws.DailyDoubleMin:
			out = append(out, e.issue(RuleDailyDoubleTime, SeverityHard, roster.DayPtr(day), "", total,
				fmt.Sprintf("worked %d minutes, double time from %d", total, e.laws.DailyDoubleMin)))
		case total > e.laws.DailyOTMin:
			out = append(out, e.issue(RuleDailyOT, SeveritySoft, roster.DayPtr(day), "", total,
				fmt.Sprintf("worked %d minutes, overtime after %d", total, e.laws.DailyOTMin)))
		}
	}
	return out
}

// perShift checks meal and rest breaks on whole source shifts. A shift split
// by local midnight is reported on the local day it starts.
func (e evaluator) perShift(shifts []roster.Shift, offset int) []Issue {
	out := make([]Issue, 0)
	for _, s := range shifts {
		duration := s.Duration()
		if duration <= 0 || !s.Day.Valid() {
			continue
		}
		localStart := s.StartMinute() + offset
		day := timegrid.DayShift(s.Day, timegrid.FloorDiv(localStart, timegrid.MinutesPerDay))

		merged := posture.MergeForShift(s, e.calendar)
		clamped := make([]roster.PostureSegment, 0, len(merged))
		for _, seg := range merged {
			if c, ok := roster.ClampSegment(seg, duration); ok {
				clamped = append(clamped, c)
			}
		}
		breakMin := posture.BreakMinutes(clamped, e.tasks)

		if !e.suppress {
			if duration > e.laws.RequireMealAfter && breakMin < 30 {
				out = append(out, e.issue(RuleMealMissing, SeverityHard, roster.DayPtr(day), s.ID, duration,
					fmt.Sprintf("%d minute shift has %d break minutes", duration, breakMin)))
			}
			if duration > e.laws.RequireSecondMealAfter && breakMin < 60 {
				out = append(out, e.issue(RuleSecondMealMissing, SeverityHard, roster.DayPtr(day), s.ID, duration,
					fmt.Sprintf("%d minute shift has %d break minutes", duration, breakMin)))
			}
		}

		credit := 0
		if duration > e.laws.RequireMealAfter {
			credit = 30
		}
		if duration > e.laws.RequireSecondMealAfter {
			credit = 60
		}
		remaining := breakMin - min(credit, breakMin)
		needed := (duration / 240) * e.laws.RestBreakPerBlock
		if needed > remaining {
			out = append(out, e.issue(RuleRestBreakShort, SeveritySoft, roster.DayPtr(day), s.ID, needed-remaining,
				fmt.Sprintf("needs %d rest minutes, has %d", needed, remaining)))
		}
	}
	return out
}

func (e evaluator) weekly(days [7]dayPieces) []Issue {
	out := make([]Issue, 0)
	total := 0
	for _, d := range days {
		total += d.total
	}
	if total > e.laws.WeeklyOTMin {
		out = append(out, e.issue(RuleWeeklyOT, SeverityHard, nil, "", total,
			fmt.Sprintf("worked %d minutes, weekly overtime after %d", total, e.laws.WeeklyOTMin)))
	}

	// Count the worked days running back from the last day of the week.
	run := 0
	for i := 6; i >= 0; i-- {
		if days[timegrid.DayShift(e.firstDay, i)].total == 0 {
			break
		}
		run++
	}
	if run >= 7 {
		last := timegrid.DayShift(e.firstDay, 6)
		out = append(out, e.issue(RuleNoDayOff, SeverityHard, roster.DayPtr(last), "", run,
			fmt.Sprintf("%d consecutive days worked", run)))
		if minutes := days[last].total; minutes > e.laws.DailyOTMin {
			out = append(out, e.issue(RuleSeventhDayDouble, SeverityHard, roster.DayPtr(last), "", minutes,
				fmt.Sprintf("worked %d minutes on the seventh consecutive day", minutes)))
		}
	}
	return out
}

// restBetween measures the gap from the last piece ending on each day to the
// first piece starting on the next, wrapping Sat to Sun. Two pieces of one
// source shift are continuous work, not a rest; after such a tail the gap
// runs to the next shift starting that day. The gap counts the minutes left
// on day i after the last end plus the minutes before the first start, so a
// day ending early never shows as a short rest.
func (e evaluator) restBetween(days [7]dayPieces) []Issue {
	out := make([]Issue, 0)
	for _, day := range timegrid.Days() {
		next := timegrid.NextDay(day)
		today, tomorrow := days[day].pieces, days[next].pieces
		if len(today) == 0 || len(tomorrow) == 0 {
			continue
		}
		last := latestEnding(today)
		first := tomorrow[0]
		var gap int
		if last.SourceID != "" && last.SourceID == first.SourceID && first.SourceOffset > 0 {
			// The overnight tail is still work; the rest starts where it ends.
			tailEnd := timegrid.MinutesOrZero(first.Shift.End)
			after, ok := firstStartingAfter(tomorrow, first.SourceID, tailEnd)
			if !ok {
				continue
			}
			first = after
			gap = after.Shift.StartMinute() - tailEnd
		} else {
			lastEnd := timegrid.MinutesOrZero(last.Shift.End)
			gap = (timegrid.MinutesPerDay - lastEnd) + first.Shift.StartMinute()
		}
		if gap < e.laws.MinRestBetween {
			out = append(out, e.issue(RuleShortRestBetween, SeveritySoft, roster.DayPtr(next), first.SourceID, gap,
				fmt.Sprintf("%d minutes rest after %s", gap, day)))
		}
		if gap < e.laws.MinRestBetweenStrong {
			out = append(out, e.issue(RuleShortRestPredSched, SeveritySoft, roster.DayPtr(next), first.SourceID, gap,
				fmt.Sprintf("%d minutes rest after %s", gap, day)))
		}
	}
	return out
}

// firstStartingAfter returns the earliest piece of another source shift that
// starts at or after from. pieces are ordered by start.
func firstStartingAfter(pieces []tzproject.Piece, sourceID string, from int) (tzproject.Piece, bool) {
	for _, p := range pieces {
		if p.SourceID != sourceID && p.Shift.StartMinute() >= from {
			return p, true
		}
	}
	return tzproject.Piece{}, false
}

func latestEnding(pieces []tzproject.Piece) tzproject.Piece {
	best := pieces[0]
	for _, p := range pieces[1:] {
		if timegrid.MinutesOrZero(p.Shift.End) > timegrid.MinutesOrZero(best.Shift.End) {
			best = p
		}
	}
	return best
}

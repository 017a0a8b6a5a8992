package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/shift-roster/internal/persistence"
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

var (
	shiftCounter   uint64
	agentCounter   uint64
	segmentCounter uint64
)

// The reference week starts on Sunday 2024-01-07, outside any DST transition.
const (
	ReferenceWeekStart = "2024-01-07"
	ReferenceTZ        = "America/Los_Angeles"
)

var referenceTime = time.Date(2024, time.January, 8, 17, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceKey addresses the reference week.
func ReferenceKey() persistence.Key {
	return persistence.Key{WeekStart: ReferenceWeekStart, TZID: ReferenceTZ}
}

// ----------------------------- Shift fixtures -----------------------------

// ShiftOption configures a generated shift.
type ShiftOption func(*roster.Shift)

// NewShift returns a Monday 09:00-17:00 shift with a generated ID unless
// overridden.
func NewShift(opts ...ShiftOption) roster.Shift {
	idx := atomic.AddUint64(&shiftCounter, 1)
	shift := roster.Shift{
		ID:     fmt.Sprintf("shift-%03d", idx),
		Person: "agent-001",
		Day:    timegrid.Mon,
		Start:  "09:00",
		End:    "17:00",
	}
	for _, opt := range opts {
		opt(&shift)
	}
	return shift
}

// WithShiftID overrides the generated shift ID.
func WithShiftID(id string) ShiftOption {
	return func(s *roster.Shift) {
		s.ID = id
	}
}

// WithPerson sets the agent working the shift.
func WithPerson(person string) ShiftOption {
	return func(s *roster.Shift) {
		s.Person = person
	}
}

// OnDay sets the start day.
func OnDay(day timegrid.Day) ShiftOption {
	return func(s *roster.Shift) {
		s.Day = day
	}
}

// Between sets the start and end clock times.
func Between(start, end string) ShiftOption {
	return func(s *roster.Shift) {
		s.Start = start
		s.End = end
	}
}

// EndingOn sets an explicit end day.
func EndingOn(day timegrid.Day) ShiftOption {
	return func(s *roster.Shift) {
		s.EndDay = roster.DayPtr(day)
	}
}

// WithSegments attaches posture segments.
func WithSegments(segments ...roster.PostureSegment) ShiftOption {
	return func(s *roster.Shift) {
		s.Segments = append([]roster.PostureSegment(nil), segments...)
	}
}

// WithNotes sets free text notes.
func WithNotes(notes string) ShiftOption {
	return func(s *roster.Shift) {
		s.Notes = notes
	}
}

// ----------------------------- Agent fixtures -----------------------------

// AgentOption configures a generated agent.
type AgentOption func(*roster.Agent)

// NewAgent returns an agent in the reference timezone.
func NewAgent(opts ...AgentOption) roster.Agent {
	idx := atomic.AddUint64(&agentCounter, 1)
	agent := roster.Agent{
		ID:        fmt.Sprintf("agent-%03d", idx),
		FirstName: "Agent",
		LastName:  fmt.Sprintf("%03d", idx),
		TZID:      ReferenceTZ,
	}
	for _, opt := range opts {
		opt(&agent)
	}
	return agent
}

// WithAgentID overrides the generated agent ID.
func WithAgentID(id string) AgentOption {
	return func(a *roster.Agent) {
		a.ID = id
	}
}

// WithAgentTZ sets the agent's home timezone.
func WithAgentTZ(tz string) AgentOption {
	return func(a *roster.Agent) {
		a.TZID = tz
	}
}

// WithSupervisor sets the agent's supervisor.
func WithSupervisor(id string) AgentOption {
	return func(a *roster.Agent) {
		a.SupervisorID = id
	}
}

// ----------------------------- Task fixtures -----------------------------

// BreakTask is the stock break task.
func BreakTask() roster.Task {
	return roster.Task{ID: "task-break", Name: "Break", Kind: roster.TaskKindBreak}
}

// PhoneTask is a working task.
func PhoneTask() roster.Task {
	return roster.Task{ID: "task-phones", Name: "Phones", Kind: roster.TaskKindWork, Posture: "phones"}
}

// Segment returns a posture segment for taskID.
func Segment(taskID string, offset, duration int) roster.PostureSegment {
	return roster.PostureSegment{TaskID: taskID, StartOffsetMin: offset, DurationMin: duration}
}

// CalendarSegment returns a calendar-anchored segment with a generated ID.
func CalendarSegment(person string, day timegrid.Day, start, end, taskID string) roster.CalendarSegment {
	idx := atomic.AddUint64(&segmentCounter, 1)
	return roster.CalendarSegment{
		ID:     fmt.Sprintf("cal-%03d", idx),
		Person: person,
		Day:    day,
		Start:  start,
		End:    end,
		TaskID: taskID,
	}
}

// ----------------------------- Week fixtures -----------------------------

// NewWeek returns a week holding shifts, the stock tasks and an agent per
// distinct person.
func NewWeek(shifts ...roster.Shift) roster.Week {
	week := roster.Week{Tasks: []roster.Task{BreakTask(), PhoneTask()}}
	seen := make(map[string]bool)
	for _, s := range shifts {
		week.Shifts = append(week.Shifts, s.Clone())
		if s.Person != "" && !seen[s.Person] {
			seen[s.Person] = true
			week.Agents = append(week.Agents, NewAgent(WithAgentID(s.Person)))
		}
	}
	week.EnsureSlices()
	return week
}

// NewDocument wraps week as an unsaved document of kind for the reference key.
func NewDocument(kind persistence.Kind, week roster.Week) persistence.Document {
	doc := persistence.NewDocument(kind, ReferenceKey())
	doc.Week = week.Clone()
	doc.EnsureSlices()
	return doc
}

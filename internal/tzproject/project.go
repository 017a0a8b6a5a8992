// Package tzproject re-expresses weekly shifts anchored to a base timezone in
// another timezone, splitting shifts that cross local midnight.
package tzproject

import (
	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

// Piece is one day-bounded part of a projected shift.
type Piece struct {
	Shift roster.Shift
	// SourceID is the id of the shift the piece was cut from.
	SourceID string
	// SourceOffset is the minute within the source shift at which the piece
	// begins.
	SourceOffset int
	// SourceDuration is the full length of the source shift.
	SourceDuration int
}

// Project moves shifts by offsetMinutes and returns day-bounded shifts in the
// target frame. Malformed shifts are skipped.
func Project(shifts []roster.Shift, offsetMinutes int) []roster.Shift {
	pieces := ProjectPieces(shifts, offsetMinutes)
	out := make([]roster.Shift, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, p.Shift)
	}
	return out
}

// ProjectHours is Project with a signed whole-hour offset.
func ProjectHours(shifts []roster.Shift, hours int) []roster.Shift {
	return Project(shifts, hours*60)
}

// ProjectPieces is Project keeping track of where each emitted piece sits in
// its source shift.
func ProjectPieces(shifts []roster.Shift, offsetMinutes int) []Piece {
	out := make([]Piece, 0, len(shifts))
	for _, s := range shifts {
		out = append(out, projectOne(s, offsetMinutes)...)
	}
	return out
}

func projectOne(s roster.Shift, offset int) []Piece {
	if !s.Day.Valid() {
		return nil
	}
	start, err := timegrid.ToMinutes(s.Start)
	if err != nil || start == timegrid.MinutesPerDay {
		return nil
	}
	duration := s.Duration()
	if duration <= 0 {
		return nil
	}

	localStart := start + offset
	localEnd := localStart + duration
	startDelta := timegrid.FloorDiv(localStart, timegrid.MinutesPerDay)
	endDelta := timegrid.FloorDiv(localEnd-1, timegrid.MinutesPerDay)
	startDay := timegrid.DayShift(s.Day, startDelta)
	wrappedStart := localStart - startDelta*timegrid.MinutesPerDay

	if startDelta == endDelta {
		end := wrappedStart + duration
		return []Piece{newPiece(s, startDay, wrappedStart, end, 0, duration)}
	}

	// A shift lasts at most one day, so it straddles exactly one local midnight.
	firstLen := timegrid.MinutesPerDay - wrappedStart
	endDay := timegrid.DayShift(s.Day, endDelta)
	return []Piece{
		newPiece(s, startDay, wrappedStart, timegrid.MinutesPerDay, 0, duration),
		newPiece(s, endDay, 0, duration-firstLen, firstLen, duration),
	}
}

func newPiece(src roster.Shift, day timegrid.Day, start, end, sourceOffset, sourceDuration int) Piece {
	out := roster.Shift{
		ID:       src.ID,
		Person:   src.Person,
		Day:      day,
		Start:    timegrid.MinutesToHHMM(start),
		End:      timegrid.EndHHMM(end),
		Notes:    src.Notes,
		Segments: rebaseSegments(src.Segments, sourceOffset, end-start),
	}
	return Piece{Shift: out, SourceID: src.ID, SourceOffset: sourceOffset, SourceDuration: sourceDuration}
}

// rebaseSegments keeps the parts of segs that fall inside [from, from+length)
// of the source shift, re-expressed relative to the piece start.
func rebaseSegments(segs []roster.PostureSegment, from, length int) []roster.PostureSegment {
	if len(segs) == 0 {
		return nil
	}
	out := make([]roster.PostureSegment, 0, len(segs))
	for _, seg := range segs {
		moved := roster.PostureSegment{TaskID: seg.TaskID, StartOffsetMin: seg.StartOffsetMin - from, DurationMin: seg.DurationMin}
		if clamped, ok := roster.ClampSegment(moved, length); ok {
			out = append(out, clamped)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// TotalMinutes sums the durations of shifts.
func TotalMinutes(shifts []roster.Shift) int {
	total := 0
	for _, s := range shifts {
		total += s.Duration()
	}
	return total
}

package posture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/timegrid"
)

func TestCandidatesForShift(t *testing.T) {
	t.Parallel()

	shift := roster.Shift{ID: "s", Person: "p1", Day: timegrid.Mon, Start: "09:00", End: "17:00"}
	calendar := []roster.CalendarSegment{
		{ID: "c1", Person: "p1", Day: timegrid.Mon, Start: "12:00", End: "12:30", TaskID: "lunch"},
		{ID: "c2", Person: "p2", Day: timegrid.Mon, Start: "12:00", End: "12:30", TaskID: "lunch"},
		{ID: "c3", Person: "p1", Day: timegrid.Tue, Start: "12:00", End: "12:30", TaskID: "lunch"},
		{ID: "c4", Person: "p1", Day: timegrid.Mon, Start: "08:00", End: "10:00", TaskID: "email"},
	}

	got := CandidatesForShift(shift, calendar)
	assert.ElementsMatch(t, []roster.PostureSegment{
		{TaskID: "lunch", StartOffsetMin: 180, DurationMin: 30},
		{TaskID: "email", StartOffsetMin: -60, DurationMin: 120},
	}, got)
}

func TestCandidatesForShiftWrapsWeek(t *testing.T) {
	t.Parallel()

	shift := roster.Shift{ID: "s", Person: "p1", Day: timegrid.Sat, Start: "22:00", End: "06:00"}
	calendar := []roster.CalendarSegment{
		{ID: "c1", Person: "p1", Day: timegrid.Sun, Start: "01:00", End: "01:30", TaskID: "break"},
	}

	got := CandidatesForShift(shift, calendar)
	require.Len(t, got, 1)
	assert.Equal(t, roster.PostureSegment{TaskID: "break", StartOffsetMin: 180, DurationMin: 30}, got[0])
}

func TestMergeManualBeatsCalendar(t *testing.T) {
	t.Parallel()

	shift := roster.Shift{
		ID: "s", Person: "p1", Day: timegrid.Mon, Start: "09:00", End: "17:00",
		Segments: []roster.PostureSegment{{TaskID: "meeting", StartOffsetMin: 60, DurationMin: 60}},
	}
	candidates := []roster.PostureSegment{
		{TaskID: "email", StartOffsetMin: 90, DurationMin: 60},
		{TaskID: "lunch", StartOffsetMin: 180, DurationMin: 30},
		{TaskID: "early", StartOffsetMin: -60, DurationMin: 90},
		{TaskID: "late", StartOffsetMin: 450, DurationMin: 60},
	}

	got := Merge(shift, candidates)
	assert.Equal(t, []roster.PostureSegment{
		{TaskID: "early", StartOffsetMin: 0, DurationMin: 30},
		{TaskID: "meeting", StartOffsetMin: 60, DurationMin: 60},
		{TaskID: "lunch", StartOffsetMin: 180, DurationMin: 30},
		{TaskID: "late", StartOffsetMin: 450, DurationMin: 30},
	}, got)
}

func TestMergeFirstCandidateWins(t *testing.T) {
	t.Parallel()

	shift := roster.Shift{ID: "s", Person: "p1", Day: timegrid.Mon, Start: "09:00", End: "17:00"}
	got := Merge(shift, []roster.PostureSegment{
		{TaskID: "b", StartOffsetMin: 30, DurationMin: 60},
		{TaskID: "a", StartOffsetMin: 0, DurationMin: 60},
		{TaskID: "c", StartOffsetMin: 60, DurationMin: 30},
	})
	assert.Equal(t, []roster.PostureSegment{
		{TaskID: "a", StartOffsetMin: 0, DurationMin: 60},
		{TaskID: "c", StartOffsetMin: 60, DurationMin: 30},
	}, got)

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].EndOffsetMin(), got[i].StartOffsetMin)
	}
}

func TestMergeForShiftAndBreakMinutes(t *testing.T) {
	t.Parallel()

	tasks := roster.TaskIndex([]roster.Task{
		{ID: "lunch", Name: "Lunch", Kind: roster.TaskKindBreak},
		{ID: "rest", Name: "Rest break"},
		{ID: "phones", Name: "Phones", Kind: roster.TaskKindWork},
	})
	shift := roster.Shift{
		ID: "s", Person: "p1", Day: timegrid.Mon, Start: "09:00", End: "17:00",
		Segments: []roster.PostureSegment{{TaskID: "phones", StartOffsetMin: 0, DurationMin: 120}},
	}
	calendar := []roster.CalendarSegment{
		{ID: "c1", Person: "p1", Day: timegrid.Mon, Start: "12:00", End: "12:30", TaskID: "lunch"},
		{ID: "c2", Person: "p1", Day: timegrid.Mon, Start: "15:00", End: "15:10", TaskID: "rest"},
		{ID: "c3", Person: "p1", Day: timegrid.Mon, Start: "10:00", End: "10:15", TaskID: "rest"},
	}

	merged := MergeForShift(shift, calendar)
	require.Len(t, merged, 3)
	assert.Equal(t, 40, BreakMinutes(merged, tasks))
	assert.Equal(t, 0, BreakMinutes([]roster.PostureSegment{{TaskID: "unknown", DurationMin: 30}}, tasks))
}

package timegrid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		input   string
		want    int
		wantErr bool
	}{
		"midnight":          {input: "00:00", want: 0},
		"morning":           {input: "09:30", want: 570},
		"last minute":       {input: "23:59", want: 1439},
		"end of day":        {input: "24:00", want: 1440},
		"24 with minutes":   {input: "24:01", wantErr: true},
		"hour out of range": {input: "25:00", wantErr: true},
		"minute overflow":   {input: "10:60", wantErr: true},
		"single digit hour": {input: "9:00", wantErr: true},
		"signed":            {input: "+1:00", wantErr: true},
		"empty":             {input: "", wantErr: true},
		"garbage":           {input: "ab:cd", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := ToMinutes(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidTime)
				assert.False(t, IsValidHHMM(tc.input))
				assert.Equal(t, 0, MinutesOrZero(tc.input))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.True(t, IsValidHHMM(tc.input))
		})
	}
}

func TestMinutesToHHMMRoundTrip(t *testing.T) {
	t.Parallel()

	for m := 0; m < MinutesPerDay; m++ {
		got, err := ToMinutes(MinutesToHHMM(m))
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
}

func TestMinutesToHHMMWraps(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00:00", MinutesToHHMM(1440))
	assert.Equal(t, "23:00", MinutesToHHMM(-60))
	assert.Equal(t, "01:30", MinutesToHHMM(1440*3+90))
	assert.Equal(t, "24:00", EndHHMM(1440))
	assert.Equal(t, "17:00", EndHHMM(1020))
}

func TestFloorDiv(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, FloorDiv(0, 1440))
	assert.Equal(t, 0, FloorDiv(1439, 1440))
	assert.Equal(t, 1, FloorDiv(1440, 1440))
	assert.Equal(t, -1, FloorDiv(-1, 1440))
	assert.Equal(t, -1, FloorDiv(-1440, 1440))
	assert.Equal(t, -2, FloorDiv(-1441, 1440))
}

func TestDayArithmetic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Sun, NextDay(Sat))
	assert.Equal(t, Sat, PrevDay(Sun))
	assert.Equal(t, Tue, DayShift(Sat, 3))
	assert.Equal(t, Thu, DayShift(Mon, -4))
	assert.Equal(t, Mon, DayShift(Mon, 14))

	d, err := ParseDay("wed")
	require.NoError(t, err)
	assert.Equal(t, Wed, d)

	_, err = ParseDay("Funday")
	assert.ErrorIs(t, err, ErrInvalidDay)
}

func TestDayJSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(struct {
		Day Day `json:"day"`
	}{Day: Fri})
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"Fri"}`, string(raw))

	var decoded struct {
		Day Day `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"Tue"}`), &decoded))
	assert.Equal(t, Tue, decoded.Day)

	assert.Error(t, json.Unmarshal([]byte(`{"day":"Xyz"}`), &decoded))
}

func TestOffsetMinutes(t *testing.T) {
	t.Parallel()

	winter, err := WeekAnchor("2024-01-07", "America/New_York")
	require.NoError(t, err)

	offset, err := OffsetMinutes("America/New_York", "America/Los_Angeles", winter)
	require.NoError(t, err)
	assert.Equal(t, -180, offset)

	offset, err = OffsetMinutes("America/New_York", "Asia/Kolkata", winter)
	require.NoError(t, err)
	assert.Equal(t, 630, offset)

	summer, err := WeekAnchor("2024-07-07", "UTC")
	require.NoError(t, err)
	offset, err = OffsetMinutes("UTC", "Europe/London", summer)
	require.NoError(t, err)
	assert.Equal(t, 60, offset)

	_, err = OffsetMinutes("UTC", "Mars/Olympus", time.Now())
	assert.ErrorIs(t, err, ErrInvalidZone)
}

func TestDateForDay(t *testing.T) {
	t.Parallel()

	// 2024-03-03 is a Sunday.
	date, err := DateForDay("2024-03-03", Wed)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-06", date)

	date, err = DateForDay("2024-03-03", Sun)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", date)

	_, err = DateForDay("03/03/2024", Sun)
	assert.Error(t, err)
}

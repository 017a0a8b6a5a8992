// Package coverage buckets shifts into fixed-width bins across the week to
// show how many people are on at any time.
package coverage

import (
	"errors"
	"fmt"
	"sort"

	"github.com/example/shift-roster/internal/roster"
	"github.com/example/shift-roster/internal/scheduler"
	"github.com/example/shift-roster/internal/timegrid"
)

// ErrInvalidBinWidth is returned when the bin width does not evenly divide a day.
var ErrInvalidBinWidth = errors.New("coverage: bin width must be a positive divisor of 1440")

// Bin is one time slot on the weekly grid.
type Bin struct {
	Day      timegrid.Day `json:"day"`
	StartMin int          `json:"startMin"`
	EndMin   int          `json:"endMin"`
	// Count is the number of distinct people working at any point in the bin.
	Count int `json:"count"`
	// Occupancy is worked person-minutes divided by the bin width, i.e. the
	// average number of people on during the bin.
	Occupancy float64 `json:"occupancy"`
}

// Bins returns 7*1440/binMinutes bins in week order. Malformed shifts are
// ignored.
func Bins(shifts []roster.Shift, binMinutes int) ([]Bin, error) {
	if binMinutes <= 0 || timegrid.MinutesPerDay%binMinutes != 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBinWidth, binMinutes)
	}
	perDay := timegrid.MinutesPerDay / binMinutes
	bins := make([]Bin, 0, 7*perDay)
	for _, day := range timegrid.Days() {
		for i := 0; i < perDay; i++ {
			bins = append(bins, Bin{Day: day, StartMin: i * binMinutes, EndMin: (i + 1) * binMinutes})
		}
	}

	people := make([]map[string]struct{}, len(bins))
	minutes := make([]int, len(bins))
	for _, s := range shifts {
		for _, iv := range scheduler.Segments(s) {
			first := iv.StartMin / binMinutes
			last := (iv.EndMin - 1) / binMinutes
			for b := first; b <= last; b++ {
				idx := int(iv.Day)*perDay + b
				lo := max(iv.StartMin, b*binMinutes)
				hi := min(iv.EndMin, (b+1)*binMinutes)
				if hi <= lo {
					continue
				}
				minutes[idx] += hi - lo
				if people[idx] == nil {
					people[idx] = make(map[string]struct{})
				}
				people[idx][s.Person] = struct{}{}
			}
		}
	}

	for i := range bins {
		bins[i].Count = len(people[i])
		bins[i].Occupancy = float64(minutes[i]) / float64(binMinutes)
	}
	return bins, nil
}

// Peak returns the bins with the highest Count, in week order.
func Peak(bins []Bin) []Bin {
	best := 0
	for _, b := range bins {
		best = max(best, b.Count)
	}
	out := make([]Bin, 0)
	if best == 0 {
		return out
	}
	for _, b := range bins {
		if b.Count == best {
			out = append(out, b)
		}
	}
	return out
}

// Gaps returns the bins on the given days where nobody is working, merged into
// contiguous intervals.
func Gaps(bins []Bin, days ...timegrid.Day) []scheduler.Interval {
	want := make(map[timegrid.Day]bool, len(days))
	for _, d := range days {
		want[d] = true
	}
	sorted := append([]Bin(nil), bins...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Day != sorted[j].Day {
			return sorted[i].Day < sorted[j].Day
		}
		return sorted[i].StartMin < sorted[j].StartMin
	})

	out := make([]scheduler.Interval, 0)
	for _, b := range sorted {
		if len(want) > 0 && !want[b.Day] {
			continue
		}
		if b.Count > 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Day == b.Day && out[n-1].EndMin == b.StartMin {
			out[n-1].EndMin = b.EndMin
			continue
		}
		out = append(out, scheduler.Interval{Day: b.Day, StartMin: b.StartMin, EndMin: b.EndMin})
	}
	return out
}

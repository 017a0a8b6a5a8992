package roster

import (
	"strings"

	"github.com/example/shift-roster/internal/timegrid"
)

// PTO is an inclusive range of calendar dates on which a person is fully off.
type PTO struct {
	ID        string `json:"id"`
	Person    string `json:"person"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Notes     string `json:"notes,omitempty"`
}

// Covers reports whether date (YYYY-MM-DD) falls within the range. The date
// layout sorts lexically so plain string comparison is enough.
func (p PTO) Covers(date string) bool {
	return p.StartDate <= date && date <= p.EndDate
}

// Validate checks the dates and their ordering.
func (p PTO) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(p.Person) == "" {
		verr.Add("person", "person is required", nil)
	}
	if _, err := timegrid.ParseDate(p.StartDate); err != nil {
		verr.Add("startDate", "start date must be YYYY-MM-DD", err)
	}
	if _, err := timegrid.ParseDate(p.EndDate); err != nil {
		verr.Add("endDate", "end date must be YYYY-MM-DD", err)
	}
	if !verr.HasErrors() && p.EndDate < p.StartDate {
		verr.Add("endDate", "end date must not be before start date", nil)
	}
	return verr.OrNil()
}

// IsOff reports whether person has PTO covering date.
func IsOff(person, date string, pto []PTO) bool {
	for _, p := range pto {
		if p.Person == person && p.Covers(date) {
			return true
		}
	}
	return false
}

// Override is a dated one-off adjustment to a person's roster. The core
// algorithms carry it through unchanged.
type Override struct {
	ID     string `json:"id"`
	Person string `json:"person"`
	Date   string `json:"date"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
	Off    bool   `json:"off,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// Validate checks the date and, when present, the HH:MM bounds.
func (o Override) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(o.Person) == "" {
		verr.Add("person", "person is required", nil)
	}
	if _, err := timegrid.ParseDate(o.Date); err != nil {
		verr.Add("date", "date must be YYYY-MM-DD", err)
	}
	if o.Start != "" && !timegrid.IsValidHHMM(o.Start) {
		verr.Add("start", "invalid start time", ErrInvalidTime)
	}
	if o.End != "" && !timegrid.IsValidHHMM(o.End) {
		verr.Add("end", "invalid end time", ErrInvalidTime)
	}
	return verr.OrNil()
}

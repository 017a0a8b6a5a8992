package roster

import (
	"errors"
	"fmt"
	"sort"
)

// Week is the editable content of one roster week, shared by the stage and
// live documents.
type Week struct {
	Shifts       []Shift           `json:"shifts"`
	PTO          []PTO             `json:"pto"`
	Overrides    []Override        `json:"overrides"`
	CalendarSegs []CalendarSegment `json:"calendarSegs"`
	Agents       []Agent           `json:"agents"`
	Tasks        []Task            `json:"tasks"`
}

// EnsureSlices replaces nil collections with empty ones so documents encode
// arrays instead of null.
func (w *Week) EnsureSlices() {
	if w.Shifts == nil {
		w.Shifts = []Shift{}
	}
	if w.PTO == nil {
		w.PTO = []PTO{}
	}
	if w.Overrides == nil {
		w.Overrides = []Override{}
	}
	if w.CalendarSegs == nil {
		w.CalendarSegs = []CalendarSegment{}
	}
	if w.Agents == nil {
		w.Agents = []Agent{}
	}
	if w.Tasks == nil {
		w.Tasks = []Task{}
	}
}

// Clone returns a deep copy with every collection non-nil.
func (w Week) Clone() Week {
	out := Week{
		Shifts:       make([]Shift, 0, len(w.Shifts)),
		PTO:          append([]PTO{}, w.PTO...),
		Overrides:    append([]Override{}, w.Overrides...),
		CalendarSegs: make([]CalendarSegment, 0, len(w.CalendarSegs)),
		Agents:       append([]Agent{}, w.Agents...),
		Tasks:        append([]Task{}, w.Tasks...),
	}
	for _, s := range w.Shifts {
		out.Shifts = append(out.Shifts, s.Clone())
	}
	for _, c := range w.CalendarSegs {
		if c.EndDay != nil {
			d := *c.EndDay
			c.EndDay = &d
		}
		out.CalendarSegs = append(out.CalendarSegs, c)
	}
	return out
}

// Validate checks every record of the week, including shift id uniqueness and
// supervisor references.
func (w Week) Validate() error {
	verr := &ValidationError{}
	seen := make(map[string]bool, len(w.Shifts))
	for i, s := range w.Shifts {
		prefix := fmt.Sprintf("shifts[%d].", i)
		if s.ID == "" {
			verr.Add(prefix+"id", "id is required", nil)
		} else if seen[s.ID] {
			verr.Add(prefix+"id", fmt.Sprintf("duplicate shift id %q", s.ID), nil)
		}
		seen[s.ID] = true
		mergeInto(verr, prefix, s.Validate())
	}
	for i, p := range w.PTO {
		mergeInto(verr, fmt.Sprintf("pto[%d].", i), p.Validate())
	}
	for i, o := range w.Overrides {
		mergeInto(verr, fmt.Sprintf("overrides[%d].", i), o.Validate())
	}
	for i, c := range w.CalendarSegs {
		mergeInto(verr, fmt.Sprintf("calendarSegs[%d].", i), c.Validate())
	}
	mergeInto(verr, "", ValidateSupervisors(w.Agents))
	return verr.OrNil()
}

// AgentIDs returns the distinct persons referenced by agents and shifts, in
// sorted order.
func (w Week) AgentIDs() []string {
	set := make(map[string]struct{})
	for _, a := range w.Agents {
		set[a.ID] = struct{}{}
	}
	for _, s := range w.Shifts {
		set[s.Person] = struct{}{}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func mergeInto(verr *ValidationError, prefix string, err error) {
	if err == nil {
		return
	}
	var v *ValidationError
	if errors.As(err, &v) {
		verr.Merge(prefix, v)
		return
	}
	verr.Add(prefix+"_", err.Error(), err)
}

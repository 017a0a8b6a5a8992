package roster

import (
	"fmt"
	"strings"
)

// Agent is a person who can be rostered.
type Agent struct {
	ID            string `json:"id"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	TZID          string `json:"tzId"`
	Hidden        bool   `json:"hidden,omitempty"`
	IsSupervisor  bool   `json:"isSupervisor,omitempty"`
	SupervisorID  string `json:"supervisorId,omitempty"`
	Notes         string `json:"notes,omitempty"`
	MeetingCohort string `json:"meetingCohort,omitempty"`
}

// DisplayName joins first and last name.
func (a Agent) DisplayName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// ValidateSupervisors checks that every supervisor reference points to a known
// agent and that no chain of references loops.
func ValidateSupervisors(agents []Agent) error {
	byID := make(map[string]Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}

	verr := &ValidationError{}
	for i, a := range agents {
		if a.SupervisorID == "" {
			continue
		}
		if a.SupervisorID == a.ID {
			verr.Add(fmt.Sprintf("agents[%d].supervisorId", i), "agent cannot supervise themselves", ErrSupervisorCycle)
			continue
		}
		if _, ok := byID[a.SupervisorID]; !ok {
			verr.Add(fmt.Sprintf("agents[%d].supervisorId", i), fmt.Sprintf("unknown supervisor %q", a.SupervisorID), nil)
		}
	}
	if verr.HasErrors() {
		return verr
	}

	// Each agent walks up at most len(agents) steps; revisiting means a cycle.
	for i, a := range agents {
		seen := map[string]bool{a.ID: true}
		cur := a.SupervisorID
		for cur != "" {
			if seen[cur] {
				verr.Add(fmt.Sprintf("agents[%d].supervisorId", i), "supervisor chain forms a cycle", ErrSupervisorCycle)
				break
			}
			seen[cur] = true
			cur = byID[cur].SupervisorID
		}
	}
	return verr.OrNil()
}

// SupervisorChain returns the supervisor ids above id, nearest first. The walk
// stops after maxDepth steps or when it revisits an agent, so it terminates
// even on unvalidated data.
func SupervisorChain(id string, agents []Agent, maxDepth int) []string {
	byID := make(map[string]Agent, len(agents))
	for _, a := range agents {
		byID[a.ID] = a
	}
	chain := make([]string, 0)
	seen := map[string]bool{id: true}
	cur := byID[id].SupervisorID
	for cur != "" && len(chain) < maxDepth && !seen[cur] {
		chain = append(chain, cur)
		seen[cur] = true
		cur = byID[cur].SupervisorID
	}
	return chain
}

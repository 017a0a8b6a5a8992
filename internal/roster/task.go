package roster

import "strings"

// TaskKind classifies what a posture task means for compliance.
type TaskKind string

const (
	TaskKindUnspecified TaskKind = ""
	TaskKindBreak       TaskKind = "break"
	TaskKindWork        TaskKind = "work"
	TaskKindMeeting     TaskKind = "meeting"
)

// Task is a labeled posture that can occupy part of a shift.
type Task struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Color    string   `json:"color,omitempty"`
	Posture  string   `json:"posture,omitempty"`
	Kind     TaskKind `json:"kind,omitempty"`
	Archived bool     `json:"archived,omitempty"`
}

// IsBreak reports whether time spent on the task counts as a break. An
// explicit Kind wins; older records without one are classified by looking for
// "break" in Posture and then Name.
func (t Task) IsBreak() bool {
	if t.Kind != TaskKindUnspecified {
		return t.Kind == TaskKindBreak
	}
	if strings.Contains(strings.ToLower(t.Posture), "break") {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), "break")
}

// TaskIndex maps task ids to tasks.
func TaskIndex(tasks []Task) map[string]Task {
	idx := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		idx[t.ID] = t
	}
	return idx
}

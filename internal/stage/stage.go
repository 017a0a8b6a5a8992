package stage

import (
	"github.com/example/shift-roster/internal/persistence"
)

// CloneFromLive returns a stage document branched from live. The clone
// carries live's content and records live's token as its base; its own token
// and revision are left for the store to assign.
func CloneFromLive(live persistence.Document) persistence.Document {
	out := live.Clone()
	out.Kind = persistence.KindStage
	out.UpdatedAt = ""
	out.Revision = 0
	out.BaseLiveUpdatedAt = live.UpdatedAt
	out.EnsureSlices()
	return out
}

// Empty returns a fresh stage for a week that has never been published.
func Empty(key persistence.Key) persistence.Document {
	return persistence.NewDocument(persistence.KindStage, key)
}

// Rebase marks stage as branched from live without touching its content.
func Rebase(stage, live persistence.Document) persistence.Document {
	out := stage.Clone()
	out.BaseLiveUpdatedAt = live.UpdatedAt
	return out
}

// IsBehind reports whether live has been published since stage was branched.
// A stage with no base is behind any existing live document.
func IsBehind(stage persistence.Document, live *persistence.Document) bool {
	if live == nil {
		return false
	}
	return stage.BaseLiveUpdatedAt != live.UpdatedAt
}

// DiffDocuments compares a stage document against live. A nil live is
// treated as an empty week.
func DiffDocuments(live *persistence.Document, stage persistence.Document, opts Options) WeekDiff {
	var base persistence.Document
	if live != nil {
		base = *live
	}
	return DiffWeeks(base.Week, stage.Week, opts)
}

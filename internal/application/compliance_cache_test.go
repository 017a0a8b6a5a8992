package application

import (
	"testing"
	"time"

	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/persistence"
)

func cachedDoc(kind persistence.Kind, week, token string) persistence.Document {
	return persistence.Document{Kind: kind, WeekStart: week, TZID: "America/Los_Angeles", UpdatedAt: token}
}

func TestComplianceCacheReturnsCopies(t *testing.T) {
	cache := newComplianceCache(time.Minute, 4, nil)
	doc := cachedDoc(persistence.KindStage, "2024-01-07", "t1")

	original := []compliance.Issue{{Rule: compliance.RuleDailyOT, Person: "agent-001"}}
	cache.remember(doc, ComplianceOptions{}, original)
	original[0].Person = "mutated"

	cached, ok := cache.lookup(doc, ComplianceOptions{})
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if cached[0].Person != "agent-001" {
		t.Fatalf("expected stored copy to be unaffected, got %s", cached[0].Person)
	}
	cached[0].Person = "changed"
	again, _ := cache.lookup(doc, ComplianceOptions{})
	if again[0].Person != "agent-001" {
		t.Fatalf("expected independent copies per lookup, got %s", again[0].Person)
	}
}

func TestComplianceCacheKeepsEmptyResults(t *testing.T) {
	cache := newComplianceCache(time.Minute, 4, nil)
	doc := cachedDoc(persistence.KindLive, "2024-01-07", "t1")
	cache.remember(doc, ComplianceOptions{}, nil)

	issues, ok := cache.lookup(doc, ComplianceOptions{})
	if !ok {
		t.Fatalf("expected hit for an evaluated week without issues")
	}
	if issues == nil || len(issues) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", issues)
	}
}

func TestComplianceCacheMissesOnNewToken(t *testing.T) {
	cache := newComplianceCache(time.Minute, 4, nil)
	v1 := cachedDoc(persistence.KindStage, "2024-01-07", "t1")
	cache.remember(v1, ComplianceOptions{}, []compliance.Issue{{Rule: compliance.RuleWeeklyOT}})

	v2 := v1
	v2.UpdatedAt = "t2"
	if _, ok := cache.lookup(v2, ComplianceOptions{}); ok {
		t.Fatalf("expected a newer version to miss")
	}

	cache.remember(v2, ComplianceOptions{}, nil)
	if _, ok := cache.lookup(v1, ComplianceOptions{}); ok {
		t.Fatalf("expected the superseded version to be replaced")
	}
	if len(cache.slots) != 1 {
		t.Fatalf("expected one slot per document, got %d", len(cache.slots))
	}
}

func TestComplianceCacheExpiresEntries(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newComplianceCache(time.Second, 4, func() time.Time { return current })
	doc := cachedDoc(persistence.KindStage, "2024-01-07", "t1")

	cache.remember(doc, ComplianceOptions{}, []compliance.Issue{{Rule: compliance.RuleWeeklyOT}})
	if _, ok := cache.lookup(doc, ComplianceOptions{}); !ok {
		t.Fatalf("expected cache hit before expiry")
	}
	current = current.Add(2 * time.Second)
	if _, ok := cache.lookup(doc, ComplianceOptions{}); ok {
		t.Fatalf("expected cache entry to expire")
	}
}

func TestComplianceCacheDropsStalestWhenFull(t *testing.T) {
	current := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	cache := newComplianceCache(time.Hour, 2, func() time.Time { return current })

	weeks := []string{"2024-01-07", "2024-01-14", "2024-01-21"}
	for _, week := range weeks {
		cache.remember(cachedDoc(persistence.KindLive, week, "t1"), ComplianceOptions{}, nil)
		current = current.Add(time.Second)
	}
	if _, ok := cache.lookup(cachedDoc(persistence.KindLive, weeks[0], "t1"), ComplianceOptions{}); ok {
		t.Fatalf("expected the stalest slot to be dropped")
	}
	if _, ok := cache.lookup(cachedDoc(persistence.KindLive, weeks[2], "t1"), ComplianceOptions{}); !ok {
		t.Fatalf("expected the newest slot to remain")
	}
}

func TestComplianceCacheForgetDropsBothKinds(t *testing.T) {
	cache := newComplianceCache(time.Minute, 4, nil)
	stageDoc := cachedDoc(persistence.KindStage, "2024-01-07", "t1")
	liveDoc := cachedDoc(persistence.KindLive, "2024-01-07", "t1")
	other := cachedDoc(persistence.KindLive, "2024-01-14", "t1")
	for _, doc := range []persistence.Document{stageDoc, liveDoc, other} {
		cache.remember(doc, ComplianceOptions{}, nil)
	}

	cache.forget(stageDoc.Key())

	if _, ok := cache.lookup(stageDoc, ComplianceOptions{}); ok {
		t.Fatalf("expected stage slot to be forgotten")
	}
	if _, ok := cache.lookup(liveDoc, ComplianceOptions{}); ok {
		t.Fatalf("expected live slot to be forgotten")
	}
	if _, ok := cache.lookup(other, ComplianceOptions{}); !ok {
		t.Fatalf("expected other weeks to be kept")
	}
}

func TestComplianceCacheSeparatesOptions(t *testing.T) {
	cache := newComplianceCache(time.Minute, 4, nil)
	doc := cachedDoc(persistence.KindStage, "2024-01-07", "t1")
	suppressed := ComplianceOptions{SuppressMealBreaks: true}

	cache.remember(doc, ComplianceOptions{}, []compliance.Issue{{Rule: compliance.RuleMealMissing}})
	if _, ok := cache.lookup(doc, suppressed); ok {
		t.Fatalf("expected a miss for different options")
	}

	cache.remember(doc, suppressed, nil)
	full, ok := cache.lookup(doc, ComplianceOptions{})
	if !ok || len(full) != 1 {
		t.Fatalf("expected the unsuppressed result to be kept, got %v %v", full, ok)
	}

	cache.forget(doc.Key())
	if len(cache.slots) != 0 {
		t.Fatalf("expected forget to drop every option slot, got %d", len(cache.slots))
	}
}

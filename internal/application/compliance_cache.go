package application

import (
	"sync"
	"time"

	"github.com/example/shift-roster/internal/compliance"
	"github.com/example/shift-roster/internal/persistence"
)

// complianceCache holds the evaluated issues of the latest version of each
// document slot (kind, week key and evaluation options). A document never changes under the
// same token, so a lookup hits only when the slot's token matches.
type complianceCache struct {
	mu       sync.Mutex
	now      func() time.Time
	ttl      time.Duration
	capacity int
	slots    map[complianceSlot]evaluatedVersion
}

type complianceSlot struct {
	kind persistence.Kind
	key  persistence.Key
	opts ComplianceOptions
}

type evaluatedVersion struct {
	token     string
	issues    []compliance.Issue
	evaluated time.Time
}

func newComplianceCache(ttl time.Duration, capacity int, now func() time.Time) *complianceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if capacity <= 0 {
		capacity = 128
	}
	if now == nil {
		now = time.Now
	}
	return &complianceCache{
		now:      now,
		ttl:      ttl,
		capacity: capacity,
		slots:    make(map[complianceSlot]evaluatedVersion),
	}
}

func slotOf(doc persistence.Document, opts ComplianceOptions) complianceSlot {
	return complianceSlot{kind: doc.Kind, key: doc.Key(), opts: opts}
}

// lookup returns a copy of the issues evaluated for exactly this version of
// doc under opts.
func (c *complianceCache) lookup(doc persistence.Document, opts ComplianceOptions) ([]compliance.Issue, bool) {
	if c == nil {
		return nil, false
	}
	slot := slotOf(doc, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	version, ok := c.slots[slot]
	switch {
	case !ok:
		return nil, false
	case version.token != doc.UpdatedAt:
		return nil, false
	case c.now().Sub(version.evaluated) > c.ttl:
		delete(c.slots, slot)
		return nil, false
	}
	return copyIssues(version.issues), true
}

// remember replaces whatever version the slot held before.
func (c *complianceCache) remember(doc persistence.Document, opts ComplianceOptions, issues []compliance.Issue) {
	if c == nil {
		return
	}
	slot := slotOf(doc, opts)
	version := evaluatedVersion{token: doc.UpdatedAt, issues: copyIssues(issues), evaluated: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.slots[slot]; !ok && len(c.slots) >= c.capacity {
		c.dropStalestLocked()
	}
	c.slots[slot] = version
}

// forget drops every slot of a week.
func (c *complianceCache) forget(key persistence.Key) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for slot := range c.slots {
		if slot.key == key {
			delete(c.slots, slot)
		}
	}
	c.mu.Unlock()
}

func (c *complianceCache) dropStalestLocked() {
	var (
		victim complianceSlot
		oldest time.Time
		found  bool
	)
	for slot, version := range c.slots {
		if !found || version.evaluated.Before(oldest) {
			victim, oldest, found = slot, version.evaluated, true
		}
	}
	if found {
		delete(c.slots, victim)
	}
}

func copyIssues(issues []compliance.Issue) []compliance.Issue {
	out := make([]compliance.Issue, len(issues))
	copy(out, issues)
	return out
}

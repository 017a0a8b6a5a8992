package testfixtures

import (
	"strconv"
	"sync"
	"time"
)

// Clock is a manually advanced time source. Stores stamp document tokens
// from it, so tests that need distinct tokens advance it between writes.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start.UTC()}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc adapts the clock for constructor injection. A nil clock yields
// time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// Token formats the current instant the way stores format UpdatedAt.
func (c *Clock) Token() string {
	return c.Now().Format(time.RFC3339Nano)
}

// IDGenerator yields "<prefix>-1", "<prefix>-2", ... for shift and snapshot
// ids.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	issued uint64
}

// NewIDGenerator uses "id" when prefix is empty.
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.prefix + "-" + strconv.FormatUint(g.issued, 10)
}

// NextFunc adapts the generator for constructor injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many ids were handed out.
func (g *IDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return int(g.issued)
}

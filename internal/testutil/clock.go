package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential 8-hex-digit ids: "00000001", "00000002", etc.
// Ids queued with Queue are returned first, which lets tests force collisions.
type StubIDGenerator struct {
	mu       sync.Mutex
	counter  int
	queued   []string
	Attempts []int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

// Queue makes the next calls to New return ids in order.
func (g *StubIDGenerator) Queue(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queued = append(g.queued, ids...)
}

func (g *StubIDGenerator) New(_ time.Time, _ string, attempt int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Attempts = append(g.Attempts, attempt)
	if len(g.queued) > 0 {
		id := g.queued[0]
		g.queued = g.queued[1:]
		return id
	}
	g.counter++
	return fmt.Sprintf("%08x", g.counter)
}

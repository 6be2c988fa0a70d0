package testutil

import (
	"fmt"
	"sync"
	"time"

	"inkwell/internal/inkwell"
)

// StubClock is an inkwell.Clock that only moves when told to. Safe for
// concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ inkwell.Clock = (*StubClock)(nil)

// NewStubClock creates a StubClock set to t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2026-01-15 09:05:00 UTC, a
// single-digit hour so snapshot names exercise zero padding.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2026, 1, 15, 9, 5, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Backups taken after an Advance of at
// least a second get distinct snapshot names.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator hands out "tmp-1", "tmp-2", ... so temporary link names are
// predictable.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

var _ inkwell.IDGenerator = (*StubIDGenerator)(nil)

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("tmp-%d", g.counter)
}

// Package frame provides the clock and frame-tick scheduling the engine
// runs on. Real deployments use the system clock and a ticker; tests
// inject manual implementations and step time explicitly.
package frame

import (
	"sync"
	"time"
)

// Clock supplies the current time. Implementations must be monotonic:
// gesture timing windows and momentum decay must not jump when the wall
// clock is adjusted.
type Clock interface {
	Now() time.Time
}

// systemClock reads the system clock. Values from time.Now carry Go's
// monotonic reading, so differences between them are adjustment-safe.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real monotonic clock.
func SystemClock() Clock {
	return systemClock{}
}

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a manual clock starting at the given instant.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

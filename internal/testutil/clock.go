package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the first instant a StepClock reports unless told
// otherwise.
var DefaultEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// StepClock is a deterministic clock for tests. Each call to Now returns
// the previous instant plus a fixed step, starting at the epoch.
//
// The engine reads its clock once per execution, so consecutive queries
// see consecutive instants and every row of one query sees the same one.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	epoch time.Time
	step  time.Duration
	calls int64
}

// NewStepClock creates a clock starting at epoch. A zero epoch means
// DefaultEpoch; a zero step makes the clock frozen.
//
// The first call to Now() returns epoch.
func NewStepClock(epoch time.Time, step time.Duration) *StepClock {
	if epoch.IsZero() {
		epoch = DefaultEpoch
	}
	return &StepClock{epoch: epoch.UTC(), step: step}
}

// Now returns the next instant.
//
// Monotonic: never decreases for a non-negative step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.epoch.Add(time.Duration(c.calls) * c.step)
	c.calls++
	return t
}

// Calls returns how many times Now has been called.
func (c *StepClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Reset rewinds the clock to its epoch.
//
// Used for test reuse. After Reset(), the next call to Now() returns the
// epoch again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = 0
}

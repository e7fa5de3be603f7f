package engine

import (
	"time"

	"github.com/roach88/equery/internal/functions"
)

// Clock supplies "now" to date functions such as today() and
// yearsfromdate().
type Clock = functions.Env

// frozenClock pins an execution to the instant it started.
type frozenClock time.Time

func (c frozenClock) Now() time.Time {
	return time.Time(c)
}

// freeze reads c once; all rows of an execution share the result.
func freeze(c Clock) Clock {
	return frozenClock(c.Now())
}

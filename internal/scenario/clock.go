package scenario

import (
	"sync"
	"time"
)

// SimClock is the time source handed to the engine during a replay. It holds
// the timestamp of the most recent operation that carried one and never moves
// backwards.
type SimClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewSimClock(start time.Time) *SimClock {
	return &SimClock{now: start.UTC()}
}

func (c *SimClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock to unix seconds ts. It reports false and leaves the
// clock alone when ts is earlier than the current time.
func (c *SimClock) Advance(ts uint64) bool {
	next := time.Unix(int64(ts), 0).UTC()
	c.mu.Lock()
	defer c.mu.Unlock()
	if next.Before(c.now) {
		return false
	}
	c.now = next
	return true
}

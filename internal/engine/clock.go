package engine

import (
	"sync/atomic"
	"time"
)

// Clock stamps messages, host UI events and local state changes.
//
// Values are Unix milliseconds and never decrease within one Clock. Equal
// values are allowed; list position breaks ties.
type Clock interface {
	NowMillis() int64
}

// SystemClock is the wall clock clamped to be non-decreasing.
//
// Thread-safety: SystemClock is safe for concurrent use (atomic operations).
type SystemClock struct {
	last atomic.Int64
	now  func() time.Time
}

// NewSystemClock creates a clock backed by time.Now.
func NewSystemClock() *SystemClock {
	return &SystemClock{now: time.Now}
}

// NowMillis returns the current time in milliseconds, or the previously
// returned value if the wall clock stepped backwards.
func (c *SystemClock) NowMillis() int64 {
	now := c.now().UnixMilli()
	for {
		last := c.last.Load()
		if now <= last {
			return last
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// Last returns the most recent value handed out, or 0.
func (c *SystemClock) Last() int64 {
	return c.last.Load()
}

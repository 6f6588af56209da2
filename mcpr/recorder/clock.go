package recorder

import (
	"math"
	"sync"
	"time"
)

// Clock converts wall-clock instants into recording-relative millisecond
// timestamps. Time spent paused is cut out of the timeline: the first event
// after a pause continues from the last emitted timestamp.
//
// Timestamps returned by Next never decrease, even if the wall clock does,
// and saturate at math.MaxInt32.
type Clock struct {
	now func() time.Time

	mu      sync.Mutex
	start   int64 // unix ms
	started bool
	last    int64
	offset  int64 // total paused ms
	paused  bool  // currently paused
	absorb  bool  // a pause happened since the last event
}

// NewClock returns a Clock reading time from now. If start is non-zero it
// defines t=0; otherwise the first call to Next does.
func NewClock(now func() time.Time, start time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{now: now}
	if !start.IsZero() {
		c.start = start.UnixMilli()
		c.started = true
	}
	return c
}

// Next returns the timestamp for an event observed now.
func (c *Clock) Next() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextLocked()
}

func (c *Clock) nextLocked() int32 {
	now := c.now().UnixMilli()
	if !c.started {
		c.start = now
		c.started = true
	}
	if c.absorb {
		c.offset += now - c.start - c.offset - c.last
		c.absorb = false
		c.paused = false
	}
	ts := now - c.start - c.offset
	if ts < c.last {
		ts = c.last
	}
	// Recordings longer than ~24.8 days stay pinned at the int32 maximum.
	if ts > math.MaxInt32 {
		ts = math.MaxInt32
	}
	c.last = ts
	return int32(ts)
}

// MarkPaused records that the source stopped producing events, for example
// because a singleplayer game was paused.
func (c *Clock) MarkPaused() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	c.absorb = true
}

// MarkResumed clears the paused flag. The pause is still cut out of the
// timeline when the next event arrives.
func (c *Clock) MarkResumed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = false
}

// Paused reports whether the clock is currently marked paused.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Last returns the most recently emitted timestamp.
func (c *Clock) Last() int32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int32(c.last)
}

// Start returns the instant that defines t=0, and false if no event has been
// stamped and no start time was configured.
func (c *Clock) Start() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return time.Time{}, false
	}
	return time.UnixMilli(c.start), true
}

package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the monotonic logical clock for record ordering.
//
// Every appended record is stamped with a strictly increasing seq number.
// Logical ordering keeps replays deterministic where wall-clock timestamps
// would race.
//
// Thread-safety: atomic operations make Clock safe for concurrent use,
// though the single-writer loop is normally the only caller of Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used when reopening a log to resume past the highest persisted seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// WallClock supplies record timestamps in unix milliseconds.
// Injected so tests can pin time and compare golden traces.
type WallClock interface {
	NowMillis() int64
}

// SystemWall reads the real system clock.
type SystemWall struct{}

// NowMillis returns the current time in unix milliseconds.
func (SystemWall) NowMillis() int64 {
	return time.Now().UnixMilli()
}

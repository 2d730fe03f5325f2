// Package testutil holds deterministic stand-ins for the engine's time
// and identity sources, so tests produce byte-identical logs and traces.
package testutil

import "sync"

// SteppingWall is a wall clock that starts at a fixed unix-millisecond
// instant and advances by a fixed step on every reading.
//
// Deterministic timestamps make trace durations exact and golden files
// stable across runs.
//
// Thread-safety: all methods are safe for concurrent use via internal
// mutex, matching the engine's WallClock contract.
type SteppingWall struct {
	mu   sync.Mutex
	now  int64
	step int64
}

// NewSteppingWall creates a wall clock at start that advances by step
// milliseconds per reading. The first reading returns start.
func NewSteppingWall(start, step int64) *SteppingWall {
	return &SteppingWall{now: start, step: step}
}

// NowMillis returns the current instant and advances the clock.
func (w *SteppingWall) NowMillis() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	t := w.now
	w.now += w.step
	return t
}

// Set repositions the clock, e.g. to simulate a long gate wait.
func (w *SteppingWall) Set(now int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.now = now
}

// FixedWall always reports the same instant. Useful when every record of
// a flow should share one timestamp, making durations zero.
type FixedWall struct {
	Now int64
}

// NowMillis returns the fixed instant.
func (w FixedWall) NowMillis() int64 {
	return w.Now
}

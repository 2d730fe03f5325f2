package engine

import (
	"sync"

	"github.com/weftlabs/weft/internal/ir"
)

// completionQueue is a thread-safe FIFO of completion records awaiting
// sync evaluation.
//
// The queue is unbounded so cascading sync firings can enqueue follow-on
// completions without blocking the loop that produced them.
//
// External producers (gate callbacks, seeding) enqueue while the engine's
// Run loop dequeues. A buffered signal channel of size 1 coalesces
// wakeups and lets the loop wait with context awareness.
type completionQueue struct {
	mu     sync.Mutex
	recs   []ir.ActionRecord
	closed bool
	signal chan struct{}
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{
		recs:   make([]ir.ActionRecord, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a completion to the back of the queue.
// Returns false if the queue is closed.
func (q *completionQueue) Enqueue(rec ir.ActionRecord) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.recs = append(q.recs, rec)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (zero, false) if the queue is empty.
func (q *completionQueue) TryDequeue() (ir.ActionRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.recs) == 0 {
		return ir.ActionRecord{}, false
	}

	rec := q.recs[0]

	// Zero the slot so the backing array does not retain the record's
	// field objects until reallocation.
	q.recs[0] = ir.ActionRecord{}

	if len(q.recs) == 1 {
		q.recs = q.recs[:0]
	} else {
		q.recs = q.recs[1:]
	}

	return rec, true
}

// Wait returns a channel that signals when records may be available.
// The channel closes when the queue closes, waking all waiters.
func (q *completionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *completionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.recs)
}

// Close signals that no more records will be enqueued.
func (q *completionQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

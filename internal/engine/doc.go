// Package engine runs the synchronization loop: it evaluates registered
// syncs against each new completion in a flow and fires the ones whose
// when-clauses are all satisfied with consistent bindings.
//
// The engine is logically single-threaded per log: one goroutine owns the
// Run loop, and all log appends and fired-set mutations happen there.
// External work enters through Seed (a new flow's root completion) and
// Resolve (the out-of-band completion of a suspended gate invocation).
//
// A sync fires at most once per flow. Firing appends one invocation per
// then-clause, dispatches it to the target concept's handler, and appends
// the resulting completion, which re-enters the loop and may cascade.
// Handler errors become error-variant completions; a pending outcome from
// a gated concept suspends that branch until Resolve delivers its
// completion.
package engine

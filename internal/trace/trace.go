// Package trace reconstructs a flow's causal tree from the flat action
// log: which syncs fired, which stayed unfired and why, and where gated
// branches are still waiting.
//
// Construction is read-only and tolerates a flow that is still growing.
// An invocation without a completion is a stable pending state, never an
// inconsistency, no matter how long it has been waiting.
package trace

import (
	"github.com/weftlabs/weft/internal/gate"
	"github.com/weftlabs/weft/internal/ir"
)

// Flow status values. Failed wins over partial, partial over ok.
const (
	StatusOK      = "ok"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Sync node states.
const (
	SyncFired   = "fired"
	SyncUnfired = "unfired"
	SyncBlocked = "blocked"
)

// FlowTrace is the reconstructed causal tree of one flow.
type FlowTrace struct {
	FlowID     string     `json:"flowId"`
	Status     string     `json:"status"`
	DurationMs int64      `json:"durationMs"`
	Root       *TraceNode `json:"root"`
}

// TraceNode is one completed (or pending) action in the tree.
//
// For a completed action, Variant and Output come from the completion and
// DurationMs is the completion timestamp minus the invocation timestamp.
// For a pending gate, Variant is empty, Pending is true, and WaitMs is the
// elapsed time since the invocation was logged.
type TraceNode struct {
	Concept    string    `json:"concept"`
	Action     string    `json:"action"`
	Variant    string    `json:"variant,omitempty"`
	DurationMs int64     `json:"durationMs"`
	Output     ir.Object `json:"output,omitempty"`

	Pending         bool           `json:"pending,omitempty"`
	Gated           bool           `json:"gated,omitempty"`
	WaitMs          int64          `json:"waitMs,omitempty"`
	WaitDescription string         `json:"waitDescription,omitempty"`
	Progress        *gate.Progress `json:"progress,omitempty"`

	Syncs []*SyncNode `json:"syncs,omitempty"`
}

// SyncNode reports one sync's relationship to a completion: fired from it
// (with the resulting invocations as children), unfired with an
// explanation, or blocked behind a pending gate.
type SyncNode struct {
	Name           string       `json:"sync"`
	State          string       `json:"state"`
	MissingPattern string       `json:"missingPattern,omitempty"`
	Children       []*TraceNode `json:"children,omitempty"`
}

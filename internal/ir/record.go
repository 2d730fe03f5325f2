package ir

// RecordType distinguishes the two kinds of log entries.
type RecordType string

const (
	// RecordInvocation is an action invocation entry.
	RecordInvocation RecordType = "invocation"
	// RecordCompletion is an action completion entry.
	RecordCompletion RecordType = "completion"
)

// Result variants shared across the engine and trace builder.
const (
	// VariantOK is the default success variant.
	VariantOK = "ok"
	// VariantError is recorded when a dispatched handler fails.
	VariantError = "error"
)

// ActionRecord is one immutable entry in the action log.
//
// Provenance is carried by Parent: an invocation's parent is the completion
// that triggered it, a completion's parent is its own invocation. The root
// completion of a flow has no parent and no sync. Every non-root invocation
// carries the name of the sync that produced it.
type ActionRecord struct {
	ID      string     `json:"id"`
	Type    RecordType `json:"type"`
	Concept string     `json:"concept"` // URI-like identifier, e.g. "app/User"
	Action  string     `json:"action"`
	FlowID  string     `json:"flow_id"`
	Parent  string     `json:"parent,omitempty"`
	Sync    string     `json:"sync,omitempty"`
	Input   Object     `json:"input,omitempty"`
	Output  Object     `json:"output,omitempty"`
	Variant string     `json:"variant,omitempty"` // completions only
	Seq     int64      `json:"seq"`               // logical clock, ordering tiebreaker
	TS      int64      `json:"ts"`                // unix milliseconds
}

// IsRoot reports whether the record is a flow's root completion.
func (r ActionRecord) IsRoot() bool {
	return r.Type == RecordCompletion && r.Parent == ""
}

// Package gate classifies concepts as gated versus ordinary and extracts
// the waiting metadata conventions from gate action fields.
//
// A gated concept (annotated @gate in its manifest) is one whose actions
// may take arbitrarily long to complete - awaiting an external approval,
// a long-running job. An invocation of a gated action with no completion
// yet is a stable, valid, pending state, not an inconsistency. For an
// ordinary concept the same situation implies a bug.
package gate

import "github.com/weftlabs/weft/internal/ir"

// Field conventions read from a gate action's input.
const (
	fieldDescription     = "description"
	fieldProgressCurrent = "progressCurrent"
	fieldProgressTarget  = "progressTarget"
	fieldProgressUnit    = "progressUnit"
)

// Progress is the quantitative progress triple of a waiting gate,
// e.g. 12/50 approvals.
type Progress struct {
	Current int64  `json:"current"`
	Target  int64  `json:"target"`
	Unit    string `json:"unit,omitempty"`
}

// Resolver answers gate questions from concept manifests.
type Resolver struct {
	gated map[string]bool
}

// NewResolver builds a resolver over the given manifests.
func NewResolver(manifests []ir.ConceptManifest) *Resolver {
	gated := make(map[string]bool)
	for _, m := range manifests {
		if m.HasAnnotation(ir.AnnotationGate) {
			gated[m.URI] = true
		}
	}
	return &Resolver{gated: gated}
}

// IsGated reports whether the concept's manifest carries @gate.
// Unknown concepts are treated as ordinary.
func (r *Resolver) IsGated(conceptURI string) bool {
	return r.gated[conceptURI]
}

// WaitDescription extracts the free-text reason a gate is waiting from the
// invocation's input. Empty when the convention field is absent or not a
// string.
func WaitDescription(input ir.Object) string {
	s, _ := input[fieldDescription].(ir.String)
	return string(s)
}

// ProgressFromInput extracts the progressCurrent/progressTarget/progressUnit
// triple from the invocation's input. Returns nil unless both numeric
// fields are present.
func ProgressFromInput(input ir.Object) *Progress {
	current, okCur := input[fieldProgressCurrent].(ir.Int)
	target, okTgt := input[fieldProgressTarget].(ir.Int)
	if !okCur || !okTgt {
		return nil
	}

	p := &Progress{Current: int64(current), Target: int64(target)}
	if unit, ok := input[fieldProgressUnit].(ir.String); ok {
		p.Unit = string(unit)
	}
	return p
}

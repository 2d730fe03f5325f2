package ir

import "fmt"

// FieldPattern constrains one input or output field of a when-clause.
// Exactly one of Bind or Literal is set: a binding introduces (or re-uses)
// a named variable, a literal must equal a fixed value.
type FieldPattern struct {
	Bind    string `json:"bind,omitempty"`
	Literal Value  `json:"literal,omitempty"`
}

// IsBinding reports whether the pattern binds a variable.
func (p FieldPattern) IsBinding() bool {
	return p.Bind != ""
}

// WhenPattern is one when-clause of a sync: a pattern over a past
// completion of (Concept, Action), with per-field constraints on the
// completion's input and output maps.
type WhenPattern struct {
	Concept string                  `json:"concept"`
	Action  string                  `json:"action"`
	Input   map[string]FieldPattern `json:"input,omitempty"`
	Output  map[string]FieldPattern `json:"output,omitempty"`
}

// Ref renders the clause target as "Concept/action".
func (w WhenPattern) Ref() string {
	return fmt.Sprintf("%s/%s", w.Concept, w.Action)
}

// ThenField supplies one input field of a then-action: either the value of
// a bound variable or a literal.
type ThenField struct {
	Var     string `json:"var,omitempty"`
	Literal Value  `json:"literal,omitempty"`
}

// ThenClause is one action invocation issued when a sync fires.
type ThenClause struct {
	Concept string               `json:"concept"`
	Action  string               `json:"action"`
	Input   map[string]ThenField `json:"input,omitempty"`
}

// CompiledSync is a registered synchronization rule. Compiled once from
// source by an external parser, registered into the index, immutable
// thereafter.
//
// A sync fires for a given flow at most once, the first time every
// when-clause has a satisfying completion in the flow and all shared
// binding variables agree on value. Where, when present, is a CEL
// expression over the bound variables (evaluated with a top-level `bound`
// map) that must come out true.
type CompiledSync struct {
	Name  string        `json:"name"`
	When  []WhenPattern `json:"when"`
	Where string        `json:"where,omitempty"`
	Then  []ThenClause  `json:"then"`
}

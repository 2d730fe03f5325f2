// Package match implements when-clause satisfaction: deciding whether a
// compiled sync's clauses all have satisfying completions in a flow, with
// consistent bindings and a passing where-clause.
//
// Both the engine (to decide firing) and the trace builder (to explain
// non-firing) evaluate the same rules, so the logic lives here once.
package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// ReasonBindingOrWhere is the single explanation used when every clause
// matched but the sync still did not fire. The upstream behavior does not
// distinguish a binding conflict from a failing where-clause, and that
// ambiguity is preserved deliberately.
const ReasonBindingOrWhere = "binding or where-clause unsatisfied"

// Satisfaction is the outcome of evaluating one sync against a flow's
// completions.
type Satisfaction struct {
	// Fired is true when every clause has a satisfying completion, all
	// shared bindings agree, and the where-clause (if any) passed.
	Fired bool

	// Bindings holds the consistent variable assignment when Fired.
	Bindings ir.Object

	// Missing is the first when-clause with no satisfying completion in
	// the flow, nil when every clause matched something.
	Missing *ir.WhenPattern

	// Reason is a human-readable explanation when not Fired.
	Reason string
}

// WhereFunc evaluates a where expression over a binding set.
// A nil WhereFunc accepts everything.
type WhereFunc func(expr string, bindings ir.Object) (bool, error)

// ClauseMatches reports whether a completion record satisfies one
// when-clause: concept and action equal, every literal field equal on the
// record's input/output, and every bound field present.
func ClauseMatches(clause ir.WhenPattern, rec ir.ActionRecord) bool {
	if rec.Type != ir.RecordCompletion {
		return false
	}
	if rec.Concept != clause.Concept || rec.Action != clause.Action {
		return false
	}
	return fieldsMatch(clause.Input, rec.Input) && fieldsMatch(clause.Output, rec.Output)
}

func fieldsMatch(patterns map[string]ir.FieldPattern, fields ir.Object) bool {
	for name, p := range patterns {
		val, ok := fields[name]
		if !ok {
			return false
		}
		if !p.IsBinding() && !ir.Equal(p.Literal, val) {
			return false
		}
	}
	return true
}

// clauseBindings extracts the bound variables of one clause from a
// matching completion. Call only after ClauseMatches returned true.
func clauseBindings(clause ir.WhenPattern, rec ir.ActionRecord) ir.Object {
	out := ir.Object{}
	collect := func(patterns map[string]ir.FieldPattern, fields ir.Object) {
		for name, p := range patterns {
			if p.IsBinding() {
				out[p.Bind] = fields[name]
			}
		}
	}
	collect(clause.Input, rec.Input)
	collect(clause.Output, rec.Output)
	return out
}

// Satisfy evaluates a sync against the completions of a flow.
//
// Every when-clause must have at least one satisfying completion, and one
// completion per clause must be choosable such that same-named bindings
// across clauses agree on value. A missing clause is reported via Missing;
// a binding conflict or failing where-clause via ReasonBindingOrWhere.
// A where evaluation error counts as unsatisfied, never as a crash.
func Satisfy(sync ir.CompiledSync, completions []ir.ActionRecord, where WhereFunc) Satisfaction {
	// Candidates per clause, in clause order.
	candidates := make([][]ir.ActionRecord, len(sync.When))
	for i, clause := range sync.When {
		for _, rec := range completions {
			if ClauseMatches(clause, rec) {
				candidates[i] = append(candidates[i], rec)
			}
		}
		if len(candidates[i]) == 0 {
			clause := sync.When[i]
			return Satisfaction{
				Missing: &clause,
				Reason:  MissingPatternText(clause),
			}
		}
	}

	bindings, ok := chooseConsistent(sync.When, candidates, 0, ir.Object{})
	if !ok {
		return Satisfaction{Reason: ReasonBindingOrWhere}
	}

	if sync.Where != "" && where != nil {
		passed, err := where(sync.Where, bindings)
		if err != nil || !passed {
			return Satisfaction{Reason: ReasonBindingOrWhere}
		}
	}

	return Satisfaction{Fired: true, Bindings: bindings}
}

// chooseConsistent backtracks over candidate completions per clause,
// looking for an assignment where shared binding variables agree.
// Candidate sets are per-flow and small, so the search is cheap.
func chooseConsistent(when []ir.WhenPattern, candidates [][]ir.ActionRecord, i int, acc ir.Object) (ir.Object, bool) {
	if i == len(when) {
		return acc, true
	}

	for _, rec := range candidates[i] {
		clauseVars := clauseBindings(when[i], rec)
		merged, ok := mergeBindings(acc, clauseVars)
		if !ok {
			continue
		}
		if result, ok := chooseConsistent(when, candidates, i+1, merged); ok {
			return result, true
		}
	}
	return nil, false
}

// mergeBindings merges clause bindings into the accumulated set, failing
// on any same-named variable with a conflicting value.
func mergeBindings(acc, add ir.Object) (ir.Object, bool) {
	merged := make(ir.Object, len(acc)+len(add))
	for k, v := range acc {
		merged[k] = v
	}
	for k, v := range add {
		if prev, ok := merged[k]; ok && !ir.Equal(prev, v) {
			return nil, false
		}
		merged[k] = v
	}
	return merged, true
}

// MissingPatternText renders the explanation for a clause with no
// satisfying completion: "waiting on: Concept/action with field: value".
// Only literal constraints are listed; a clause without literals renders
// as just the action reference.
func MissingPatternText(clause ir.WhenPattern) string {
	literals := literalList(clause)
	if len(literals) == 0 {
		return fmt.Sprintf("waiting on: %s", clause.Ref())
	}
	return fmt.Sprintf("waiting on: %s with %s", clause.Ref(), strings.Join(literals, ", "))
}

func literalList(clause ir.WhenPattern) []string {
	var parts []string
	appendLiterals := func(patterns map[string]ir.FieldPattern) {
		names := make([]string, 0, len(patterns))
		for name := range patterns {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := patterns[name]
			if p.IsBinding() {
				continue
			}
			rendered, err := ir.MarshalValue(p.Literal)
			if err != nil {
				rendered = []byte("?")
			}
			parts = append(parts, fmt.Sprintf("%s: %s", name, rendered))
		}
	}
	appendLiterals(clause.Input)
	appendLiterals(clause.Output)
	return parts
}

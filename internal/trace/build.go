package trace

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/weftlabs/weft/internal/actionlog"
	"github.com/weftlabs/weft/internal/gate"
	"github.com/weftlabs/weft/internal/index"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/match"
)

// Builder constructs flow traces from the action log. It holds the same
// injected dependencies as the engine but never writes, so it may run
// concurrently with ongoing engine activity on the same flow.
type Builder struct {
	Log   *actionlog.Log
	Idx   *index.Index
	Gates *gate.Resolver

	// Where evaluates where-clauses when explaining unfired syncs.
	// Nil accepts every where-clause.
	Where match.WhereFunc

	// Now supplies the current unix-millisecond instant for pending gate
	// wait times. Nil means the system clock.
	Now func() int64
}

// arena holds the per-request maps the recursive build walks, so nothing
// rescans the full record list per node.
type arena struct {
	completions []ir.ActionRecord
	// compByParent maps an invocation id to its resulting completion.
	compByParent map[string]ir.ActionRecord
	// invsByParent maps a completion id to the invocations it triggered.
	invsByParent map[string][]ir.ActionRecord
	// invByID maps an invocation id to the invocation itself.
	invByID map[string]ir.ActionRecord
	// pendingGate maps "concept/action" to true when some invocation of
	// that gated action has no completion yet.
	pendingGate map[string]bool
	// fired is the flow-global set of sync names that fired anywhere.
	fired map[string]bool
}

// Build reconstructs the trace of one flow.
//
// Returns (nil, nil) when the flow has no records or no root completion;
// an unknown flow is an answer, not an error.
func (b *Builder) Build(ctx context.Context, flowID string) (*FlowTrace, error) {
	records, err := b.Log.FlowRecords(ctx, flowID)
	if err != nil {
		return nil, fmt.Errorf("read flow %s: %w", flowID, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	a := newArena(records, b.Gates)
	root, ok := findRoot(records)
	if !ok {
		return nil, nil
	}

	trace := &FlowTrace{
		FlowID: flowID,
		Root:   b.buildNode(root, a),
	}
	trace.Status = flowStatus(records, trace.Root)
	trace.DurationMs = flowDuration(records)
	return trace, nil
}

func newArena(records []ir.ActionRecord, gates *gate.Resolver) *arena {
	a := &arena{
		compByParent: make(map[string]ir.ActionRecord),
		invsByParent: make(map[string][]ir.ActionRecord),
		invByID:      make(map[string]ir.ActionRecord),
		pendingGate:  make(map[string]bool),
		fired:        make(map[string]bool),
	}
	for _, rec := range records {
		switch rec.Type {
		case ir.RecordCompletion:
			a.completions = append(a.completions, rec)
			if rec.Parent != "" {
				a.compByParent[rec.Parent] = rec
			}
		case ir.RecordInvocation:
			a.invByID[rec.ID] = rec
			if rec.Parent != "" {
				a.invsByParent[rec.Parent] = append(a.invsByParent[rec.Parent], rec)
			}
			if rec.Sync != "" {
				a.fired[rec.Sync] = true
			}
		}
	}
	// Invocations with no completion behind a gate make that
	// concept/action a blocking target for unfired syncs.
	for _, rec := range records {
		if rec.Type != ir.RecordInvocation {
			continue
		}
		if _, done := a.compByParent[rec.ID]; done {
			continue
		}
		if gates.IsGated(rec.Concept) {
			a.pendingGate[rec.Concept+"/"+rec.Action] = true
		}
	}
	for _, invs := range a.invsByParent {
		sort.Slice(invs, func(i, j int) bool { return invs[i].Seq < invs[j].Seq })
	}
	return a
}

func findRoot(records []ir.ActionRecord) (ir.ActionRecord, bool) {
	for _, rec := range records {
		if rec.IsRoot() {
			return rec, true
		}
	}
	return ir.ActionRecord{}, false
}

// buildNode builds the TraceNode for one completion, recursing through
// the invocations it triggered.
func (b *Builder) buildNode(comp ir.ActionRecord, a *arena) *TraceNode {
	node := &TraceNode{
		Concept: comp.Concept,
		Action:  comp.Action,
		Variant: comp.Variant,
		Output:  comp.Output,
		Gated:   b.Gates.IsGated(comp.Concept),
	}
	if inv, ok := invocationOf(comp, a); ok {
		node.DurationMs = comp.TS - inv.TS
	}

	// Fired syncs: triggered invocations grouped by sync name, in first
	// invocation order.
	var firedOrder []string
	bySync := make(map[string][]ir.ActionRecord)
	for _, inv := range a.invsByParent[comp.ID] {
		if _, seen := bySync[inv.Sync]; !seen {
			firedOrder = append(firedOrder, inv.Sync)
		}
		bySync[inv.Sync] = append(bySync[inv.Sync], inv)
	}
	for _, name := range firedOrder {
		sn := &SyncNode{Name: name, State: SyncFired}
		for _, inv := range bySync[name] {
			sn.Children = append(sn.Children, b.invocationNode(inv, a))
		}
		node.Syncs = append(node.Syncs, sn)
	}

	// Unfired candidates: indexed under this completion's key, fired
	// nowhere in the flow. The flow-global fired set keeps a multi-clause
	// sync that fired from one clause from showing up as unfired at the
	// completions matching its other clauses.
	for _, sync := range b.Idx.Lookup(comp.Concept, comp.Action) {
		if a.fired[sync.Name] {
			continue
		}
		sat := match.Satisfy(*sync, a.completions, b.Where)
		if sat.Fired {
			// Satisfied but not yet processed by the engine; the flow is
			// still growing. Not an unfired sync, just not visible yet.
			continue
		}
		sn := &SyncNode{Name: sync.Name, State: SyncUnfired, MissingPattern: sat.Reason}
		if sat.Missing != nil && a.pendingGate[sat.Missing.Ref()] {
			sn.State = SyncBlocked
		}
		node.Syncs = append(node.Syncs, sn)
	}

	return node
}

// invocationNode builds the node beneath a fired sync: the invocation's
// resulting completion when present, otherwise a synthesized pending node.
func (b *Builder) invocationNode(inv ir.ActionRecord, a *arena) *TraceNode {
	if comp, ok := a.compByParent[inv.ID]; ok {
		return b.buildNode(comp, a)
	}

	node := &TraceNode{
		Concept: inv.Concept,
		Action:  inv.Action,
		Pending: true,
		Gated:   b.Gates.IsGated(inv.Concept),
		WaitMs:  b.now() - inv.TS,
	}
	if node.Gated {
		node.WaitDescription = gate.WaitDescription(inv.Input)
		node.Progress = gate.ProgressFromInput(inv.Input)
	}
	return node
}

func (b *Builder) now() int64 {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UnixMilli()
}

func invocationOf(comp ir.ActionRecord, a *arena) (ir.ActionRecord, bool) {
	if comp.Parent == "" {
		return ir.ActionRecord{}, false
	}
	inv, ok := a.invByID[comp.Parent]
	return inv, ok
}

// flowStatus aggregates: failed when any completion has a non-ok variant,
// else partial when any sync is unfired on a true binding or where-clause
// failure. A sync that simply never saw its when-clause (an error-handling
// sync on the happy path, say) keeps the flow ok.
func flowStatus(records []ir.ActionRecord, root *TraceNode) string {
	for _, rec := range records {
		if rec.Type == ir.RecordCompletion && rec.Variant != "" && rec.Variant != ir.VariantOK {
			return StatusFailed
		}
	}
	if hasBindingFailure(root) {
		return StatusPartial
	}
	return StatusOK
}

func hasBindingFailure(node *TraceNode) bool {
	for _, sn := range node.Syncs {
		if sn.State == SyncUnfired && sn.MissingPattern == match.ReasonBindingOrWhere {
			return true
		}
		for _, child := range sn.Children {
			if hasBindingFailure(child) {
				return true
			}
		}
	}
	return false
}

func flowDuration(records []ir.ActionRecord) int64 {
	min, max := records[0].TS, records[0].TS
	for _, rec := range records[1:] {
		if rec.TS < min {
			min = rec.TS
		}
		if rec.TS > max {
			max = rec.TS
		}
	}
	return max - min
}

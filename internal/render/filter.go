package render

import (
	"github.com/weftlabs/weft/internal/match"
	"github.com/weftlabs/weft/internal/trace"
)

// applyFilters prunes the trace per the display filters. The input is
// never mutated; a filtered copy is returned. The root node itself always
// survives so the tree keeps its anchor.
func applyFilters(tr *trace.FlowTrace, opts Options) *trace.FlowTrace {
	if !opts.FailedOnly && !opts.GatesOnly {
		return tr
	}
	root := *tr.Root
	root.Syncs = pruneSyncs(tr.Root.Syncs, opts)
	out := *tr
	out.Root = &root
	return &out
}

func pruneSyncs(syncs []*trace.SyncNode, opts Options) []*trace.SyncNode {
	var kept []*trace.SyncNode
	for _, sn := range syncs {
		if opts.FailedOnly && !syncHasFailure(sn) {
			continue
		}
		if opts.GatesOnly && !syncHasGate(sn) {
			continue
		}
		copied := *sn
		copied.Children = pruneChildren(sn.Children, opts)
		kept = append(kept, &copied)
	}
	return kept
}

func pruneChildren(children []*trace.TraceNode, opts Options) []*trace.TraceNode {
	var kept []*trace.TraceNode
	for _, child := range children {
		if opts.FailedOnly && !nodeHasFailure(child) {
			continue
		}
		if opts.GatesOnly && !nodeHasGate(child) {
			continue
		}
		copied := *child
		copied.Syncs = pruneSyncs(child.Syncs, opts)
		kept = append(kept, &copied)
	}
	return kept
}

// nodeHasFailure reports a non-ok variant at the node or anywhere below.
func nodeHasFailure(n *trace.TraceNode) bool {
	if n.Variant != "" && n.Variant != "ok" {
		return true
	}
	for _, sn := range n.Syncs {
		if syncHasFailure(sn) {
			return true
		}
	}
	return false
}

// syncHasFailure treats a true binding or where-clause failure as a
// failure; a sync whose when-clause simply never matched is not one.
func syncHasFailure(sn *trace.SyncNode) bool {
	if sn.State == trace.SyncUnfired && sn.MissingPattern == match.ReasonBindingOrWhere {
		return true
	}
	for _, child := range sn.Children {
		if nodeHasFailure(child) {
			return true
		}
	}
	return false
}

func nodeHasGate(n *trace.TraceNode) bool {
	return treeHasGate(n)
}

func syncHasGate(sn *trace.SyncNode) bool {
	if sn.State == trace.SyncBlocked {
		return true
	}
	for _, child := range sn.Children {
		if treeHasGate(child) {
			return true
		}
	}
	return false
}

// Package render turns a FlowTrace into its two output forms: JSON that
// mirrors the structure verbatim, and an ASCII tree for humans.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weftlabs/weft/internal/trace"
)

// Status icons used in the tree form.
const (
	iconOK      = "✅"
	iconFailed  = "❌"
	iconGate    = "⏳"
	iconUnfired = "⚠"
	iconBlocked = "⏸"
)

// Options selects the output form and display filters. FailedOnly and
// GatesOnly compose: with both set, a subtree must contain a failure and
// a gate to survive.
type Options struct {
	JSON       bool
	FailedOnly bool
	GatesOnly  bool
}

// Render renders a trace per the options. The trace itself is treated as
// read-only; filters operate on a pruned copy.
func Render(tr *trace.FlowTrace, opts Options) (string, error) {
	if tr == nil {
		return "", fmt.Errorf("no trace to render")
	}
	filtered := applyFilters(tr, opts)
	if opts.JSON {
		return RenderJSON(filtered)
	}
	return RenderTree(filtered), nil
}

// RenderJSON marshals the trace structure verbatim, indented.
func RenderJSON(tr *trace.FlowTrace) (string, error) {
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}
	return string(data) + "\n", nil
}

// RenderTree renders the human-readable ASCII tree.
//
// Durations use plain milliseconds until any gate node or blocked sync
// appears in the tree, at which point every duration switches to human
// units. A pending flow that has waited hours reads better as "3h 10m"
// than as a nine-digit millisecond count.
func RenderTree(tr *trace.FlowTrace) string {
	human := treeHasGate(tr.Root)
	var b strings.Builder

	fmt.Fprintf(&b, "Flow %s [%s] (%s)\n", tr.FlowID, tr.Status, duration(tr.DurationMs, human))
	writeNode(&b, tr.Root, "", true, human)
	return b.String()
}

func writeNode(b *strings.Builder, n *trace.TraceNode, prefix string, last bool, human bool) {
	branch, childPrefix := branches(prefix, last)
	fmt.Fprintf(b, "%s%s\n", branch, nodeLine(n, human))

	for i, sn := range n.Syncs {
		writeSync(b, sn, childPrefix, i == len(n.Syncs)-1, human)
	}
}

func writeSync(b *strings.Builder, sn *trace.SyncNode, prefix string, last bool, human bool) {
	branch, childPrefix := branches(prefix, last)

	switch sn.State {
	case trace.SyncFired:
		fmt.Fprintf(b, "%s[%s] →\n", branch, sn.Name)
	case trace.SyncBlocked:
		fmt.Fprintf(b, "%s%s [%s] blocked: %s\n", branch, iconBlocked, sn.Name, sn.MissingPattern)
	default:
		fmt.Fprintf(b, "%s%s [%s] did not fire: %s\n", branch, iconUnfired, sn.Name, sn.MissingPattern)
	}

	for i, child := range sn.Children {
		writeNode(b, child, childPrefix, i == len(sn.Children)-1, human)
	}
}

// branches computes the drawing for one row and the prefix its children
// inherit.
func branches(prefix string, last bool) (row, child string) {
	if last {
		return prefix + "└─ ", prefix + "   "
	}
	return prefix + "├─ ", prefix + "│  "
}

// nodeLine renders one action node without tree decoration.
func nodeLine(n *trace.TraceNode, human bool) string {
	name := displayName(n.Concept) + "/" + n.Action

	if n.Pending {
		if !n.Gated {
			return fmt.Sprintf("%s %s (pending)", iconGate, name)
		}
		detail := "async gate, pending"
		if n.WaitDescription != "" {
			detail += ": " + n.WaitDescription
		}
		if n.Progress != nil {
			detail += fmt.Sprintf(", %d/%d", n.Progress.Current, n.Progress.Target)
			if n.Progress.Unit != "" {
				detail += " " + n.Progress.Unit
			}
		}
		detail += ", waited " + duration(n.WaitMs, human)
		return fmt.Sprintf("%s %s (%s)", iconGate, name, detail)
	}

	icon := iconOK
	if n.Variant != "" && n.Variant != "ok" {
		icon = iconFailed
	}
	return fmt.Sprintf("%s %s → %s (%s)", icon, name, n.Variant, duration(n.DurationMs, human))
}

// displayName strips the URI path, so "app/User" renders as "User".
func displayName(concept string) string {
	if i := strings.LastIndexByte(concept, '/'); i >= 0 {
		return concept[i+1:]
	}
	return concept
}

// treeHasGate reports whether any node is a pending gate or any sync is
// blocked, anywhere in the tree.
func treeHasGate(n *trace.TraceNode) bool {
	if n.Pending && n.Gated {
		return true
	}
	for _, sn := range n.Syncs {
		if sn.State == trace.SyncBlocked {
			return true
		}
		for _, child := range sn.Children {
			if treeHasGate(child) {
				return true
			}
		}
	}
	return false
}

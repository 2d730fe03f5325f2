package render

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/gate"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/match"
	"github.com/weftlabs/weft/internal/trace"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

// firedTrace is the happy-path fixture: one fired sync wrapping an email
// send, one literal-constrained sync that never matched.
func firedTrace() *trace.FlowTrace {
	return &trace.FlowTrace{
		FlowID:     "flow-1",
		Status:     trace.StatusOK,
		DurationMs: 20,
		Root: &trace.TraceNode{
			Concept: "app/User", Action: "register", Variant: "ok",
			Syncs: []*trace.SyncNode{
				{
					Name: "SendWelcomeEmail", State: trace.SyncFired,
					Children: []*trace.TraceNode{{
						Concept: "app/Email", Action: "send",
						Variant: "ok", DurationMs: 10,
					}},
				},
				{
					Name: "PromoteAdmin", State: trace.SyncUnfired,
					MissingPattern: `waiting on: app/User/register with role: "admin"`,
				},
			},
		},
	}
}

// gateTrace has a pending approval gate and a sync blocked behind it.
func gateTrace() *trace.FlowTrace {
	return &trace.FlowTrace{
		FlowID:     "flow-1",
		Status:     trace.StatusOK,
		DurationMs: 10_000_000,
		Root: &trace.TraceNode{
			Concept: "app/User", Action: "register", Variant: "ok",
			Syncs: []*trace.SyncNode{
				{
					Name: "AskApproval", State: trace.SyncFired,
					Children: []*trace.TraceNode{{
						Concept: "app/Approval", Action: "request",
						Pending: true, Gated: true,
						WaitMs:          10_000_000,
						WaitDescription: "manager approval",
						Progress:        &gate.Progress{Current: 12, Target: 50, Unit: "approvals"},
					}},
				},
				{
					Name: "NotifyApproved", State: trace.SyncBlocked,
					MissingPattern: "waiting on: app/Approval/request",
				},
			},
		},
	}
}

// failedTrace has one failing branch and one succeeding branch.
func failedTrace() *trace.FlowTrace {
	return &trace.FlowTrace{
		FlowID:     "flow-1",
		Status:     trace.StatusFailed,
		DurationMs: 30,
		Root: &trace.TraceNode{
			Concept: "app/User", Action: "register", Variant: "ok",
			Syncs: []*trace.SyncNode{
				{
					Name: "SendWelcomeEmail", State: trace.SyncFired,
					Children: []*trace.TraceNode{{
						Concept: "app/Email", Action: "send",
						Variant: "error", DurationMs: 10,
						Output: ir.Object{"error": ir.String("smtp unreachable")},
					}},
				},
				{
					Name: "AuditRegistration", State: trace.SyncFired,
					Children: []*trace.TraceNode{{
						Concept: "app/Audit", Action: "log",
						Variant: "ok", DurationMs: 5,
					}},
				},
			},
		},
	}
}

func TestRenderTree_Fired(t *testing.T) {
	out := RenderTree(firedTrace())
	golden(t).Assert(t, "fired_tree", []byte(out))
}

func TestRenderTree_GateSwitchesToHumanDurations(t *testing.T) {
	out := RenderTree(gateTrace())
	golden(t).Assert(t, "gate_tree", []byte(out))
}

func TestRenderTree_Failed(t *testing.T) {
	out := RenderTree(failedTrace())
	golden(t).Assert(t, "failed_tree", []byte(out))
}

func TestRenderJSON_MirrorsStructure(t *testing.T) {
	out, err := RenderJSON(firedTrace())
	require.NoError(t, err)

	var decoded trace.FlowTrace
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "flow-1", decoded.FlowID)
	assert.Equal(t, trace.StatusOK, decoded.Status)
	assert.Equal(t, int64(20), decoded.DurationMs)
	require.NotNil(t, decoded.Root)
	require.Len(t, decoded.Root.Syncs, 2)
	assert.Equal(t, "SendWelcomeEmail", decoded.Root.Syncs[0].Name)
}

func TestRender_FailedOnlyPrunesOKBranches(t *testing.T) {
	out, err := Render(failedTrace(), Options{FailedOnly: true})
	require.NoError(t, err)

	assert.Contains(t, out, "Email/send")
	assert.NotContains(t, out, "Audit/log")
}

func TestRender_FailedOnlyKeepsBindingFailures(t *testing.T) {
	tr := firedTrace()
	tr.Status = trace.StatusPartial
	tr.Root.Syncs = append(tr.Root.Syncs, &trace.SyncNode{
		Name: "SameUserTwice", State: trace.SyncUnfired,
		MissingPattern: match.ReasonBindingOrWhere,
	})

	out, err := Render(tr, Options{FailedOnly: true})
	require.NoError(t, err)

	assert.Contains(t, out, "SameUserTwice")
	// The happy email branch and the expected-unmatched sync are pruned.
	assert.NotContains(t, out, "Email/send")
	assert.NotContains(t, out, "PromoteAdmin")
}

func TestRender_GatesOnly(t *testing.T) {
	tr := gateTrace()
	tr.Root.Syncs = append(tr.Root.Syncs, &trace.SyncNode{
		Name: "SendWelcomeEmail", State: trace.SyncFired,
		Children: []*trace.TraceNode{{
			Concept: "app/Email", Action: "send", Variant: "ok", DurationMs: 10,
		}},
	})

	out, err := Render(tr, Options{GatesOnly: true})
	require.NoError(t, err)

	assert.Contains(t, out, "Approval/request")
	assert.Contains(t, out, "NotifyApproved")
	assert.NotContains(t, out, "Email/send")
}

func TestRender_FiltersCompose(t *testing.T) {
	// A failing branch with no gate and a gated branch with no failure:
	// with both filters on, neither survives.
	tr := failedTrace()
	tr.Root.Syncs = append(tr.Root.Syncs, gateTrace().Root.Syncs...)

	out, err := Render(tr, Options{FailedOnly: true, GatesOnly: true})
	require.NoError(t, err)

	assert.NotContains(t, out, "Email/send")
	assert.NotContains(t, out, "Approval/request")
	assert.Contains(t, out, "User/register")
}

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		ms   int64
		want string
	}{
		{0, "0ms"},
		{999, "999ms"},
		{1000, "1s"},
		{59_999, "59s"},
		{60_000, "1m 0s"},
		{95_000, "1m 35s"},
		{3_600_000, "1h 0m"},
		{10_000_000, "2h 46m"},
		{86_400_000, "1d 0h"},
		{90_000_000, "1d 1h"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, humanDuration(tc.ms), "%dms", tc.ms)
	}
}

func TestDuration_PlainMode(t *testing.T) {
	assert.Equal(t, "10000000ms", duration(10_000_000, false))
	assert.Equal(t, "2h 46m", duration(10_000_000, true))
}

package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/actionlog"
	"github.com/weftlabs/weft/internal/ir"
)

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	bundle := writeBundle(t, validBundle)

	out, err := execute(t, "validate", "--bundle", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "Bundle OK: 3 concepts, 2 syncs")
}

func TestValidateCommand_WarnsOnUnresolvedRef(t *testing.T) {
	bundle := writeBundle(t, validBundle+`
  - name: PostToSlack
    when:
      - concept: app/User
        action: register
    then:
      - concept: app/Slack
        action: post
`)

	out, err := execute(t, "validate", "--bundle", bundle)
	require.NoError(t, err)
	assert.Contains(t, out, "warning:")
	assert.Contains(t, out, "app/Slack/post")
}

func TestValidateCommand_InvalidBundleFails(t *testing.T) {
	bundle := writeBundle(t, "concept:\n  - name: User\n")

	_, err := execute(t, "validate", "--bundle", bundle)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateCommand_JSONFormat(t *testing.T) {
	bundle := writeBundle(t, validBundle)

	out, err := execute(t, "validate", "--bundle", bundle, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"status": "ok"`)
	assert.Contains(t, out, `"concepts": 3`)
}

func TestRootCommand_RejectsBadFormat(t *testing.T) {
	bundle := writeBundle(t, validBundle)

	_, err := execute(t, "validate", "--bundle", bundle, "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRunAndTraceCommands(t *testing.T) {
	bundle := writeBundle(t, validBundle)
	db := filepath.Join(t.TempDir(), "weft.db")

	out, err := execute(t, "run",
		"--db", db, "--bundle", bundle,
		"--concept", "app/User", "--action", "register",
		"--output", `{"user":"u-1"}`)
	require.NoError(t, err)

	fields := strings.Fields(strings.TrimSpace(out))
	require.Len(t, fields, 2)
	flowID := fields[1]

	out, err = execute(t, "trace", "--db", db, "--bundle", bundle, "--flow", flowID)
	require.NoError(t, err)
	assert.Contains(t, out, "User/register")
	assert.Contains(t, out, "[SendWelcomeEmail]")
	assert.Contains(t, out, "Email/send")

	// The admin-only sync never matched; expected, flow stays ok.
	assert.Contains(t, out, "[ok]")
	assert.Contains(t, out, "AskApproval")
}

func TestRunResumeTraceRoundTrip(t *testing.T) {
	bundle := writeBundle(t, validBundle)
	db := filepath.Join(t.TempDir(), "weft.db")

	out, err := execute(t, "run",
		"--db", db, "--bundle", bundle,
		"--concept", "app/User", "--action", "register",
		"--output", `{"user":"u-1","role":"admin"}`)
	require.NoError(t, err)
	flowID := strings.Fields(strings.TrimSpace(out))[1]

	// The admin registration asked for approval; the gated concept
	// suspended, so the trace shows a pending gate.
	out, err = execute(t, "trace", "--db", db, "--bundle", bundle, "--flow", flowID, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"pending": true`)

	invID := extractPendingInvocation(t, db, bundle, flowID)
	out, err = execute(t, "resume",
		"--db", db, "--bundle", bundle,
		"--invocation", invID,
		"--output", `{"approved":true}`)
	require.NoError(t, err)
	assert.Contains(t, out, "resumed flow "+flowID)

	out, err = execute(t, "trace", "--db", db, "--bundle", bundle, "--flow", flowID)
	require.NoError(t, err)
	assert.NotContains(t, out, "async gate, pending")
	assert.Contains(t, out, "Approval/request → ok")

	// Resuming the same invocation twice is a domain failure.
	_, err = execute(t, "resume",
		"--db", db, "--bundle", bundle,
		"--invocation", invID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

// extractPendingInvocation finds the suspended gate invocation of a flow
// straight from the log, the way an operator would read it off the trace.
func extractPendingInvocation(t *testing.T, db, bundle, flowID string) string {
	t.Helper()

	log, err := actionlog.Open(db)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	records, err := log.FlowRecords(ctx, flowID)
	require.NoError(t, err)

	completed := make(map[string]bool)
	for _, rec := range records {
		if rec.Type == ir.RecordCompletion && rec.Parent != "" {
			completed[rec.Parent] = true
		}
	}
	for _, rec := range records {
		if rec.Type == ir.RecordInvocation && rec.Concept == "app/Approval" && !completed[rec.ID] {
			return rec.ID
		}
	}
	t.Fatal("no pending approval invocation in flow")
	return ""
}

func TestTraceCommand_UnknownFlow(t *testing.T) {
	bundle := writeBundle(t, validBundle)
	db := filepath.Join(t.TempDir(), "weft.db")

	out, err := execute(t, "trace", "--db", db, "--bundle", bundle, "--flow", "nope")
	require.NoError(t, err)
	assert.Contains(t, out, "no trace found for flow: nope")
}

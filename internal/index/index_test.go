package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
)

func testManifests() []ir.ConceptManifest {
	return []ir.ConceptManifest{
		{
			Name: "User", URI: "app/User",
			Actions: []ir.ActionSig{{Name: "register"}, {Name: "deactivate"}},
		},
		{
			Name: "Email", URI: "app/Email",
			Actions: []ir.ActionSig{{Name: "send"}},
		},
		{
			Name: "Approval", URI: "app/Approval",
			Annotations: []string{ir.AnnotationGate},
			Actions:     []ir.ActionSig{{Name: "request"}},
		},
	}
}

func welcomeSync() ir.CompiledSync {
	return ir.CompiledSync{
		Name: "SendWelcomeEmail",
		When: []ir.WhenPattern{{
			Concept: "app/User", Action: "register",
			Output: map[string]ir.FieldPattern{"user": {Bind: "u"}},
		}},
		Then: []ir.ThenClause{{
			Concept: "app/Email", Action: "send",
			Input: map[string]ir.ThenField{"to": {Var: "u"}},
		}},
	}
}

func TestRegisterAndLookup(t *testing.T) {
	idx := New(testManifests())

	warnings := idx.Register(welcomeSync())
	assert.Empty(t, warnings)

	candidates := idx.Lookup("app/User", "register")
	require.Len(t, candidates, 1)
	assert.Equal(t, "SendWelcomeEmail", candidates[0].Name)

	assert.Empty(t, idx.Lookup("app/User", "deactivate"))
	assert.Empty(t, idx.Lookup("app/Email", "send"), "then-clause targets are not indexed")
}

func TestRegister_MultiClauseIndexedUnderEveryKey(t *testing.T) {
	idx := New(testManifests())

	idx.Register(ir.CompiledSync{
		Name: "BothHappened",
		When: []ir.WhenPattern{
			{Concept: "app/User", Action: "register"},
			{Concept: "app/Email", Action: "send"},
		},
		Then: []ir.ThenClause{{Concept: "app/Approval", Action: "request"}},
	})

	require.Len(t, idx.Lookup("app/User", "register"), 1)
	require.Len(t, idx.Lookup("app/Email", "send"), 1)
}

func TestRegister_SameNameReplaces(t *testing.T) {
	idx := New(testManifests())

	idx.Register(welcomeSync())

	// Re-register under the same name with a different when-clause.
	replacement := welcomeSync()
	replacement.When = []ir.WhenPattern{{Concept: "app/User", Action: "deactivate"}}
	idx.Register(replacement)

	assert.Empty(t, idx.Lookup("app/User", "register"), "old key entry must be gone")
	require.Len(t, idx.Lookup("app/User", "deactivate"), 1)
	assert.Len(t, idx.All(), 1)
}

func TestRegister_UnresolvedRefWarns(t *testing.T) {
	idx := New(testManifests())

	s := welcomeSync()
	s.Then = []ir.ThenClause{{Concept: "app/Slack", Action: "post"}}
	warnings := idx.Register(s)

	require.Len(t, warnings, 1)
	assert.Equal(t, "SendWelcomeEmail", warnings[0].Sync)
	assert.Equal(t, "app/Slack/post", warnings[0].Ref)

	// Registration still succeeded.
	require.Len(t, idx.Lookup("app/User", "register"), 1)
}

package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
)

func TestIsGated(t *testing.T) {
	r := NewResolver([]ir.ConceptManifest{
		{Name: "Approval", URI: "app/Approval", Annotations: []string{ir.AnnotationGate}},
		{Name: "Email", URI: "app/Email"},
	})

	assert.True(t, r.IsGated("app/Approval"))
	assert.False(t, r.IsGated("app/Email"))
	assert.False(t, r.IsGated("app/Unknown"), "unknown concepts are ordinary")
}

func TestWaitDescription(t *testing.T) {
	input := ir.Object{"description": ir.String("waiting for manager sign-off")}
	assert.Equal(t, "waiting for manager sign-off", WaitDescription(input))

	assert.Empty(t, WaitDescription(ir.Object{}))
	assert.Empty(t, WaitDescription(ir.Object{"description": ir.Int(3)}), "non-string is ignored")
}

func TestProgressFromInput(t *testing.T) {
	input := ir.Object{
		"progressCurrent": ir.Int(12),
		"progressTarget":  ir.Int(50),
		"progressUnit":    ir.String("approvals"),
	}

	p := ProgressFromInput(input)
	require.NotNil(t, p)
	assert.Equal(t, int64(12), p.Current)
	assert.Equal(t, int64(50), p.Target)
	assert.Equal(t, "approvals", p.Unit)
}

func TestProgressFromInput_MissingFields(t *testing.T) {
	assert.Nil(t, ProgressFromInput(ir.Object{}))
	assert.Nil(t, ProgressFromInput(ir.Object{"progressCurrent": ir.Int(1)}), "target required")

	// Unit is optional.
	p := ProgressFromInput(ir.Object{
		"progressCurrent": ir.Int(1),
		"progressTarget":  ir.Int(2),
	})
	require.NotNil(t, p)
	assert.Empty(t, p.Unit)
}

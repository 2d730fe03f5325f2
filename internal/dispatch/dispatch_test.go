package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/internal/ir"
)

func TestRegistry_Invoke(t *testing.T) {
	r := NewRegistry()
	r.Register("app/Email", HandlerFunc(func(_ context.Context, action string, input ir.Object) (Outcome, error) {
		assert.Equal(t, "send", action)
		return OK(ir.Object{"delivered": ir.Bool(true)}), nil
	}))

	out, err := r.Invoke(context.Background(), "app/Email", "send", ir.Object{"to": ir.String("u-1")})
	require.NoError(t, err)
	assert.Equal(t, ir.VariantOK, out.Variant)
	assert.True(t, ir.Equal(ir.Object{"delivered": ir.Bool(true)}, out.Output))
}

func TestRegistry_UnknownConcept(t *testing.T) {
	r := NewRegistry()
	_, err := r.Invoke(context.Background(), "app/Missing", "go", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestRegistry_ReplaceBinding(t *testing.T) {
	r := NewRegistry()
	r.Register("app/X", NewScripted(nil).Script("do", OK(ir.Object{"v": ir.Int(1)})))
	r.Register("app/X", NewScripted(nil).Script("do", OK(ir.Object{"v": ir.Int(2)})))

	out, err := r.Invoke(context.Background(), "app/X", "do", nil)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2), out.Output["v"])
}

func TestScripted(t *testing.T) {
	s := NewScripted(map[string]Outcome{
		"request": Pending(),
	}).Fail("reject", "backend unavailable")

	out, err := s.Invoke(context.Background(), "request", nil)
	require.NoError(t, err)
	assert.True(t, out.Pending)

	_, err = s.Invoke(context.Background(), "reject", nil)
	require.Error(t, err)

	// Unscripted actions echo their input with variant ok.
	input := ir.Object{"k": ir.String("v")}
	out, err = s.Invoke(context.Background(), "other", input)
	require.NoError(t, err)
	assert.Equal(t, ir.VariantOK, out.Variant)
	assert.True(t, ir.Equal(input, out.Output))
}

package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationID_Deterministic(t *testing.T) {
	input := Object{"user": String("u-1"), "count": Int(2)}

	id1, err := InvocationID("flow-1", "app/Email", "send", input, 5)
	require.NoError(t, err)
	id2, err := InvocationID("flow-1", "app/Email", "send", input, 5)
	require.NoError(t, err)

	assert.Equal(t, id1, id2, "same inputs must produce the same ID")
	assert.Len(t, id1, 64)
}

func TestInvocationID_SensitiveToEachField(t *testing.T) {
	base := MustInvocationID("flow-1", "app/Email", "send", Object{}, 5)

	assert.NotEqual(t, base, MustInvocationID("flow-2", "app/Email", "send", Object{}, 5))
	assert.NotEqual(t, base, MustInvocationID("flow-1", "app/SMS", "send", Object{}, 5))
	assert.NotEqual(t, base, MustInvocationID("flow-1", "app/Email", "retry", Object{}, 5))
	assert.NotEqual(t, base, MustInvocationID("flow-1", "app/Email", "send", Object{"x": Int(1)}, 5))
	assert.NotEqual(t, base, MustInvocationID("flow-1", "app/Email", "send", Object{}, 6))
}

func TestCompletionID_NilOutputEqualsEmpty(t *testing.T) {
	withNil := MustCompletionID("inv-1", VariantOK, nil, 3)
	withEmpty := MustCompletionID("inv-1", VariantOK, Object{}, 3)
	assert.Equal(t, withNil, withEmpty)
}

func TestDomainSeparation(t *testing.T) {
	// An invocation and a completion hashed over identical payload bytes
	// must never collide.
	inv := hashWithDomain(DomainInvocation, []byte("{}"))
	comp := hashWithDomain(DomainCompletion, []byte("{}"))
	assert.NotEqual(t, inv, comp)
}

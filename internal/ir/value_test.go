package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual_Primitives(t *testing.T) {
	assert.True(t, Equal(String("a"), String("a")))
	assert.False(t, Equal(String("a"), String("b")))
	assert.True(t, Equal(Int(42), Int(42)))
	assert.False(t, Equal(Int(42), Int(43)))
	assert.True(t, Equal(Bool(true), Bool(true)))

	// Cross-type comparison is never equal
	assert.False(t, Equal(String("42"), Int(42)))
	assert.False(t, Equal(Bool(true), Int(1)))
}

func TestEqual_Nested(t *testing.T) {
	a := Object{
		"role":  String("admin"),
		"tags":  Array{String("x"), Int(1)},
		"count": Int(3),
	}
	b := Object{
		"role":  String("admin"),
		"tags":  Array{String("x"), Int(1)},
		"count": Int(3),
	}
	assert.True(t, Equal(a, b))

	b["tags"] = Array{Int(1), String("x")} // order matters in arrays
	assert.False(t, Equal(a, b))
}

func TestFromAny_RejectsFloatsAndNull(t *testing.T) {
	_, err := FromAny(map[string]any{"price": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")

	_, err = FromAny(map[string]any{"gone": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestFromAny_JSONNumberIntOK(t *testing.T) {
	v, err := UnmarshalValue([]byte(`{"count": 12, "ok": true, "name": "x"}`))
	require.NoError(t, err)

	obj, ok := v.(Object)
	require.True(t, ok)
	assert.Equal(t, Int(12), obj["count"])
	assert.Equal(t, Bool(true), obj["ok"])
	assert.Equal(t, String("x"), obj["name"])
}

func TestObject_JSONRoundTrip(t *testing.T) {
	orig := Object{
		"user":  String("u-1"),
		"roles": Array{String("admin")},
		"meta":  Object{"depth": Int(2)},
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(orig, back))
}

func TestToMap(t *testing.T) {
	obj := Object{"n": Int(7), "nested": Object{"b": Bool(false)}}
	m := obj.ToMap()
	assert.Equal(t, int64(7), m["n"])
	assert.Equal(t, map[string]any{"b": false}, m["nested"])
}

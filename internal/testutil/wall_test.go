package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSteppingWall(t *testing.T) {
	w := NewSteppingWall(1000, 10)
	assert.Equal(t, int64(1000), w.NowMillis())
	assert.Equal(t, int64(1010), w.NowMillis())
	assert.Equal(t, int64(1020), w.NowMillis())

	w.Set(5000)
	assert.Equal(t, int64(5000), w.NowMillis())
}

func TestFixedWall(t *testing.T) {
	w := FixedWall{Now: 42}
	assert.Equal(t, int64(42), w.NowMillis())
	assert.Equal(t, int64(42), w.NowMillis())
}

package engine

import (
	"sync"

	"github.com/google/uuid"
)

// FlowIDGenerator generates unique flow identifiers for request correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type FlowIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow identifiers.
//
// UUIDv7 embeds a timestamp in the most significant bits, so flow IDs sort
// by creation time, which helps when scanning logs and trace listings.
//
// Thread-safety: stateless, safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails, which does not happen in practice.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined flow IDs for testing.
// Deterministic IDs make golden trace comparison possible.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
// Panics once all ids are consumed, failing fast on test misconfiguration.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all flow ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

package domain

import "sync/atomic"

// IDGenerator issues monotonically increasing IDs for a single entity kind.
// Orders and trades get independent generators so their ID spaces never
// collide; generators are injected, not held as package globals.
type IDGenerator struct {
	kind string
	next atomic.Uint64
}

// NewIDGenerator returns a generator for the given entity kind starting at 1.
func NewIDGenerator(kind string) *IDGenerator {
	return &IDGenerator{kind: kind}
}

// Kind returns the entity kind this generator serves.
func (g *IDGenerator) Kind() string { return g.kind }

// Next returns the next ID.
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1)
}

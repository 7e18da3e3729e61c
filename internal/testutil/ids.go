package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator hands out "<prefix>1", "<prefix>2", ... in order.
//
// Unlike engine.FixedGenerator, it never runs out, which suits scenarios
// where the number of joining contexts is data-driven.
//
// Thread-safety: SequentialIDGenerator is safe for concurrent use.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequentialIDGenerator creates a generator with the given prefix.
//
// If prefix is empty, "p" is used.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "p"
	}
	return &SequentialIDGenerator{prefix: prefix, next: 1}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator interface.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("%s%d", g.prefix, g.next)
	g.next++
	return id
}

// ConstantIDGenerator always returns the same id.
//
// Useful when a test pins one context's identity, e.g. the scenario file
// declares `participant_id: "2"`.
type ConstantIDGenerator string

// Generate returns the constant id.
func (g ConstantIDGenerator) Generate() string {
	return string(g)
}

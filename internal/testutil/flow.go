package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates execution IDs of the form "<prefix>-0001",
// "<prefix>-0002", ...
//
// This enables deterministic test execution and golden snapshot comparison.
// Unlike engine.FixedGenerator, which panics after its list runs out,
// SequentialIDs never runs dry.
//
// Thread-safety: SequentialIDs is safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. The prefix is typically the
// scenario name:
//
//	ids := NewSequentialIDs("scenario_a")
//	ids.Generate() // "scenario_a-0001"
//
// If prefix is empty, "exec" is used.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "exec"
	}
	return &SequentialIDs{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements engine.IDGenerator interface.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

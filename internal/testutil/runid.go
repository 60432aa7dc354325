package testutil

// FixedRunIDGenerator returns the same run ID for every stream.
//
// Unlike engine.FixedGenerator, which returns IDs in sequence and panics
// when they run out, this generator never runs out. Use it when a test
// opens an unknown number of streams and only needs log lines to be
// reproducible.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements engine.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

package extract

import "time"

// Fact is one extracted, atomic assertion, mirroring storage.MemoryUnit's
// temporal fields closely enough that a caller can pass it straight into
// storage.InsertMemory after dedup and embedding.
type Fact struct {
	Text          string
	FactType      string
	OccurredStart *time.Time
	OccurredEnd   *time.Time
	MentionedAt   *time.Time
}

// Input is what the extractor consumes for a single retain call.
type Input struct {
	Text      string
	Context   string
	EventDate time.Time
	Metadata  map[string]any
}

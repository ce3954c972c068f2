// Package storage implements the relational + vector + lexical store
// that backs every memory engine operation: banks, memory units,
// documents, async operations, mental models, and directives, plus
// the three auxiliary indexes (dense, lexical, tag containment) the
// engine reads through.
package storage

import "time"

// FactType classifies a memory unit.
type FactType string

const (
	FactExperience  FactType = "experience"
	FactWorld       FactType = "world"
	FactOpinion     FactType = "opinion"
	FactObservation FactType = "observation"
)

// Bank is the top-level isolation unit: a single agent's memory store.
type Bank struct {
	BankID      string
	Name        string
	Mission     string
	Disposition map[string]any
	Config      map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HistoryEntry is one append-only audit-log entry recorded whenever an
// observation's text is updated by consolidation.
type HistoryEntry struct {
	PreviousText    string    `json:"previous_text"`
	ChangedAt       time.Time `json:"changed_at"`
	SourceMemoryIDs []string  `json:"source_memory_ids"`
}

// MemoryUnit is the atomic fact row — either a raw fact (experience,
// world, opinion) or a synthesized observation.
type MemoryUnit struct {
	ID              string
	BankID          string
	Text            string
	FactType        FactType
	Embedding       []float32
	Tags            []string
	Metadata        map[string]any
	EventDate       time.Time
	OccurredStart   *time.Time
	OccurredEnd     *time.Time
	MentionedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ConsolidatedAt  *time.Time
	SourceMemoryIDs []string // observations only
	ProofCount      int      // observations only
	History         []HistoryEntry
	DocumentID      *string
}

// IsObservation reports whether this row is a synthesized observation.
func (m MemoryUnit) IsObservation() bool {
	return m.FactType == FactObservation
}

// Document groups multiple memory units from one ingestion.
type Document struct {
	ID           string
	BankID       string
	OriginalText string
	ContentHash  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OperationKind enumerates the kinds of tracked async operations.
type OperationKind string

const (
	OpRetain              OperationKind = "retain"
	OpConsolidate         OperationKind = "consolidate"
	OpRefreshMentalModel  OperationKind = "refresh_mental_model"
	OpBatchRetainChild    OperationKind = "batch_retain_child"
	OpBatchRetainParent   OperationKind = "batch_retain_parent"
)

// OperationStatus enumerates the lifecycle states of an async operation.
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusRunning   OperationStatus = "running"
	StatusCompleted OperationStatus = "completed"
	StatusFailed    OperationStatus = "failed"
	StatusCancelled OperationStatus = "cancelled"
)

// AsyncOperation is a tracked background job.
type AsyncOperation struct {
	OperationID       string
	BankID            string
	Kind              OperationKind
	Status            OperationStatus
	CreatedAt         time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	ResultMetadata    map[string]any
	Error             *string
	ParentOperationID *string
}

// MentalModelTrigger configures when a mental model should be
// automatically refreshed.
type MentalModelTrigger struct {
	RefreshAfterConsolidation bool `json:"refresh_after_consolidation"`
}

// MentalModel is a named stored-query artifact whose refresh is
// triggered by consolidation.
type MentalModel struct {
	ID          string
	BankID      string
	Name        string
	SourceQuery string
	Content     string
	Tags        []string
	Trigger     MentalModelTrigger
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Directive is a named, prioritized standing instruction scoped by tags.
type Directive struct {
	ID        string
	BankID    string
	Name      string
	Content   string
	Priority  int
	IsActive  bool
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

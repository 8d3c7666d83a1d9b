package pipeline

import "context"

// EmbeddingClient generates vector embeddings for text
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Record is the unit of storage sent to the vector index. Metadata must
// carry a content key for the record to remain queryable as text; the index
// replaces the whole stored record on upsert, metadata included.
type Record struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// StoredRecord is a record as it exists in the index
type StoredRecord struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// VectorMatch represents a single match from a vector search. Metadata is
// nil unless it was requested.
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// BatchStatus records the outcome of one upsert batch covering records
// [Start, End) of the input.
type BatchStatus struct {
	Start int
	End   int
	Err   error
}

// UpsertReceipt reports how much of an upsert was committed. Batches commit
// independently, so a failed call may still have written earlier batches.
type UpsertReceipt struct {
	Written int
	Batches []BatchStatus
}

// VectorIndex performs storage, search and fetch against a namespaced
// vector index. All operations are keyed by id with last-write-wins
// semantics; Fetch is for repair and verification only, never the query path.
type VectorIndex interface {
	Upsert(ctx context.Context, records []Record) (*UpsertReceipt, error)
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]VectorMatch, error)
	Fetch(ctx context.Context, ids []string) (map[string]StoredRecord, error)
}

// PropositionExtractor turns raw document text into short atomic statements
type PropositionExtractor interface {
	ExtractPropositions(ctx context.Context, paragraph string) ([]string, error)
}

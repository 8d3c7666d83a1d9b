package pipeline

import "fmt"

// MetadataContentKey is the metadata key carrying a record's source text.
const MetadataContentKey = "content"

// Proposition is a short factual statement derived from a document.
// SourceIndex is its position within the originating batch and determines
// its stable record id.
type Proposition struct {
	Content     string
	SourceIndex int
}

// ID returns the stable record identifier for this proposition
func (p Proposition) ID() string {
	return fmt.Sprintf("prop_%d", p.SourceIndex)
}

// IngestResult reports how much of an ingestion batch was committed
type IngestResult struct {
	// Total is the number of propositions in the batch
	Total int

	// Written is the number of records the index confirmed
	Written int

	// Batches lists the per-batch outcomes from the upsert
	Batches []BatchStatus
}

// SearchResult is a ranked match with display text already shaped from
// whatever metadata convention the producing ingestion run used
type SearchResult struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]any
}

// RepairPair is one intended (id, content) binding handed to the repair tool
type RepairPair struct {
	ID      string
	Content string
}

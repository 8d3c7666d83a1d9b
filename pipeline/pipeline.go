// Package pipeline sequences the ingestion and query paths: propositions are
// embedded and upserted with their text as metadata, and natural-language
// queries are embedded, matched and shaped for display. There is no state
// beyond what the vector index itself holds; every invocation is a
// straight-line sequence.
package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Config holds configuration for the Pipeline
type Config struct {
	// Embedder generates embeddings for propositions and queries. Required.
	Embedder EmbeddingClient

	// Index is the vector index holding the records. Required.
	Index VectorIndex

	// Display shapes result text from metadata. If zero, uses the default
	// content/text/chunk precedence.
	Display DisplayPolicy
}

// Pipeline orchestrates extraction output into the index and queries back
// out of it
type Pipeline struct {
	embedder EmbeddingClient
	index    VectorIndex
	display  DisplayPolicy
}

// NewPipeline creates a new Pipeline with the given configuration
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("pipeline requires an embedding client")
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("pipeline requires a vector index")
	}
	if len(cfg.Display.Keys) == 0 {
		cfg.Display = DefaultDisplayPolicy()
	}

	return &Pipeline{
		embedder: cfg.Embedder,
		index:    cfg.Index,
		display:  cfg.Display,
	}, nil
}

// Ingest embeds each proposition and upserts it under its stable id with
// its content as metadata. Metadata is always attached: an upsert without it
// would destroy the metadata of any existing record under the same id.
// On a partial upsert failure the returned result still reports what was
// committed, alongside the error.
func (p *Pipeline) Ingest(ctx context.Context, props []Proposition) (*IngestResult, error) {
	result := &IngestResult{Total: len(props)}
	if len(props) == 0 {
		return result, nil
	}

	records := make([]Record, 0, len(props))
	for _, prop := range props {
		content := strings.TrimSpace(prop.Content)
		if content == "" {
			return result, fmt.Errorf("proposition %s has empty content", prop.ID())
		}

		values, err := p.embedder.GenerateEmbedding(ctx, content)
		if err != nil {
			return result, fmt.Errorf("failed to embed %s: %w", prop.ID(), err)
		}

		records = append(records, Record{
			ID:       prop.ID(),
			Values:   values,
			Metadata: map[string]any{MetadataContentKey: content},
		})
	}

	receipt, err := p.index.Upsert(ctx, records)
	if receipt != nil {
		result.Written = receipt.Written
		result.Batches = receipt.Batches
	}
	if err != nil {
		return result, fmt.Errorf("failed to upsert propositions: %w", err)
	}

	return result, nil
}

// Search embeds a natural-language query and returns the topK closest
// records, ranked by descending score, with display text shaped from their
// metadata
func (p *Pipeline) Search(ctx context.Context, query string, topK int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("cannot search with an empty query")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	vector, err := p.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := p.index.Query(ctx, vector, topK, true)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	results := make([]SearchResult, len(matches))
	for i, match := range matches {
		results[i] = SearchResult{
			ID:       match.ID,
			Score:    match.Score,
			Text:     p.display.Render(match.Metadata),
			Metadata: match.Metadata,
		}
	}

	return results, nil
}

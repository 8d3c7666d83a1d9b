// Package testutil provides shared mock implementations for pipeline tests.
package testutil

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient for testing.
// Vectors holds canned embeddings by input text; inputs not present fall back
// to a deterministic vector derived from the text.
type MockEmbeddingClient struct {
	GenerateEmbeddingFunc func(ctx context.Context, text string) ([]float32, error)
	Dim                   int
	Vectors               map[string][]float32

	mu        sync.Mutex
	CallCount int
	LastText  string
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.CallCount++
	m.LastText = text
	m.mu.Unlock()

	if m.GenerateEmbeddingFunc != nil {
		return m.GenerateEmbeddingFunc(ctx, text)
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}

	embedding := make([]float32, m.Dimension())
	for i, r := range text {
		embedding[i%len(embedding)] += float32(r) / 1000.0
	}
	return embedding, nil
}

func (m *MockEmbeddingClient) Dimension() int {
	if m.Dim > 0 {
		return m.Dim
	}
	return 384
}

// StoredEntry is a record as held by the mock index
type StoredEntry struct {
	Values   []float32
	Metadata map[string]any
}

// MockVectorIndex is an in-memory implementation of VectorIndex. The default
// Upsert replaces whole records (metadata included, mirroring the real
// store's destructive semantics) and the default Query ranks stored entries
// by cosine similarity.
type MockVectorIndex struct {
	UpsertFunc func(ctx context.Context, records []pipeline.Record) (*pipeline.UpsertReceipt, error)
	QueryFunc  func(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]pipeline.VectorMatch, error)
	FetchFunc  func(ctx context.Context, ids []string) (map[string]pipeline.StoredRecord, error)

	mu          sync.Mutex
	Storage     map[string]StoredEntry
	UpsertCount int
	QueryCount  int
	FetchCount  int
}

func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{Storage: make(map[string]StoredEntry)}
}

func (m *MockVectorIndex) Upsert(ctx context.Context, records []pipeline.Record) (*pipeline.UpsertReceipt, error) {
	m.mu.Lock()
	m.UpsertCount++
	m.mu.Unlock()

	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, records)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.Storage[r.ID] = StoredEntry{Values: r.Values, Metadata: r.Metadata}
	}
	return &pipeline.UpsertReceipt{
		Written: len(records),
		Batches: []pipeline.BatchStatus{{Start: 0, End: len(records)}},
	}, nil
}

func (m *MockVectorIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]pipeline.VectorMatch, error) {
	m.mu.Lock()
	m.QueryCount++
	m.mu.Unlock()

	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, vector, topK, includeMetadata)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	matches := make([]pipeline.VectorMatch, 0, len(m.Storage))
	for id, entry := range m.Storage {
		match := pipeline.VectorMatch{ID: id, Score: cosine(vector, entry.Values)}
		if includeMetadata {
			match.Metadata = entry.Metadata
		}
		matches = append(matches, match)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MockVectorIndex) Fetch(ctx context.Context, ids []string) (map[string]pipeline.StoredRecord, error) {
	m.mu.Lock()
	m.FetchCount++
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ids)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	found := make(map[string]pipeline.StoredRecord)
	for _, id := range ids {
		if entry, ok := m.Storage[id]; ok {
			found[id] = pipeline.StoredRecord{ID: id, Values: entry.Values, Metadata: entry.Metadata}
		}
	}
	return found, nil
}

// MockExtractor is a mock implementation of PropositionExtractor for testing
type MockExtractor struct {
	ExtractFunc func(ctx context.Context, paragraph string) ([]string, error)

	mu        sync.Mutex
	CallCount int
}

func (m *MockExtractor) ExtractPropositions(ctx context.Context, paragraph string) ([]string, error) {
	m.mu.Lock()
	m.CallCount++
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, paragraph)
	}
	return []string{paragraph}, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

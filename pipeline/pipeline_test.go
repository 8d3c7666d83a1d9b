package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kushwanth-masupalli/QueryVault/internal/testutil"
	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

func newTestPipeline(t *testing.T, embedder pipeline.EmbeddingClient, index pipeline.VectorIndex) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.NewPipeline(pipeline.Config{Embedder: embedder, Index: index})
	if err != nil {
		t.Fatalf("Failed to create pipeline: %v", err)
	}
	return p
}

func TestNewPipeline_RequiresClients(t *testing.T) {
	if _, err := pipeline.NewPipeline(pipeline.Config{Index: testutil.NewMockVectorIndex()}); err == nil {
		t.Error("Expected error without embedder")
	}
	if _, err := pipeline.NewPipeline(pipeline.Config{Embedder: &testutil.MockEmbeddingClient{}}); err == nil {
		t.Error("Expected error without index")
	}
}

func TestIngest_StoresContentMetadata(t *testing.T) {
	mockEmbedding := &testutil.MockEmbeddingClient{Dim: 4}
	mockIndex := testutil.NewMockVectorIndex()
	p := newTestPipeline(t, mockEmbedding, mockIndex)

	props := []pipeline.Proposition{
		{Content: "The sky is blue.", SourceIndex: 0},
		{Content: "Water boils at 100C.", SourceIndex: 1},
	}

	result, err := p.Ingest(context.Background(), props)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if result.Written != 2 {
		t.Errorf("Expected 2 written, got %d", result.Written)
	}

	entry, ok := mockIndex.Storage["prop_0"]
	if !ok {
		t.Fatal("Expected prop_0 in storage")
	}
	if entry.Metadata["content"] != "The sky is blue." {
		t.Errorf("Expected content metadata, got %v", entry.Metadata)
	}
	if len(entry.Values) != 4 {
		t.Errorf("Expected 4-dimensional vector, got %d", len(entry.Values))
	}

	if _, ok := mockIndex.Storage["prop_1"]; !ok {
		t.Error("Expected prop_1 in storage")
	}
}

func TestIngest_EveryRecordCarriesMetadata(t *testing.T) {
	mockEmbedding := &testutil.MockEmbeddingClient{Dim: 4}
	mockIndex := testutil.NewMockVectorIndex()
	mockIndex.UpsertFunc = func(ctx context.Context, records []pipeline.Record) (*pipeline.UpsertReceipt, error) {
		for _, r := range records {
			if len(r.Metadata) == 0 {
				t.Errorf("Record %s upserted without metadata", r.ID)
			}
			if r.Metadata[pipeline.MetadataContentKey] == "" {
				t.Errorf("Record %s upserted without content metadata", r.ID)
			}
		}
		return &pipeline.UpsertReceipt{Written: len(records)}, nil
	}
	p := newTestPipeline(t, mockEmbedding, mockIndex)

	props := make([]pipeline.Proposition, 10)
	for i := range props {
		props[i] = pipeline.Proposition{Content: "some statement", SourceIndex: i}
	}
	if _, err := p.Ingest(context.Background(), props); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
}

func TestIngest_EmptyBatch(t *testing.T) {
	p := newTestPipeline(t, &testutil.MockEmbeddingClient{Dim: 4}, testutil.NewMockVectorIndex())

	result, err := p.Ingest(context.Background(), nil)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if result.Total != 0 || result.Written != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestIngest_EmptyContent(t *testing.T) {
	p := newTestPipeline(t, &testutil.MockEmbeddingClient{Dim: 4}, testutil.NewMockVectorIndex())

	_, err := p.Ingest(context.Background(), []pipeline.Proposition{{Content: "  ", SourceIndex: 3}})
	if err == nil {
		t.Fatal("Expected error for empty content")
	}
}

func TestIngest_EmbeddingFailureNamesRecord(t *testing.T) {
	mockEmbedding := &testutil.MockEmbeddingClient{
		GenerateEmbeddingFunc: func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("model unavailable")
		},
	}
	p := newTestPipeline(t, mockEmbedding, testutil.NewMockVectorIndex())

	_, err := p.Ingest(context.Background(), []pipeline.Proposition{{Content: "a fact", SourceIndex: 7}})
	if err == nil {
		t.Fatal("Expected embedding failure to propagate")
	}
	if got := err.Error(); !strings.Contains(got, "prop_7") {
		t.Errorf("Expected error to name prop_7, got %q", got)
	}
}

func TestIngest_PartialUpsertSurfacesCommitted(t *testing.T) {
	mockEmbedding := &testutil.MockEmbeddingClient{Dim: 4}
	mockIndex := testutil.NewMockVectorIndex()
	mockIndex.UpsertFunc = func(ctx context.Context, records []pipeline.Record) (*pipeline.UpsertReceipt, error) {
		receipt := &pipeline.UpsertReceipt{
			Written: 200,
			Batches: []pipeline.BatchStatus{
				{Start: 0, End: 200},
				{Start: 200, End: 400, Err: errors.New("connection reset")},
				{Start: 400, End: 450, Err: errors.New("batch skipped: an earlier batch failed")},
			},
		}
		return receipt, errors.New("upsert committed 200 of 450 vectors")
	}
	p := newTestPipeline(t, mockEmbedding, mockIndex)

	props := make([]pipeline.Proposition, 450)
	for i := range props {
		props[i] = pipeline.Proposition{Content: "statement", SourceIndex: i}
	}

	result, err := p.Ingest(context.Background(), props)
	if err == nil {
		t.Fatal("Expected partial failure to propagate as an error")
	}

	if result.Written != 200 {
		t.Errorf("Expected 200 written surfaced, got %d", result.Written)
	}
	if result.Total != 450 {
		t.Errorf("Expected 450 total, got %d", result.Total)
	}
	if len(result.Batches) != 3 {
		t.Fatalf("Expected 3 batch statuses surfaced, got %d", len(result.Batches))
	}
	if result.Batches[0].Err != nil || result.Batches[1].Err == nil {
		t.Error("Expected batch statuses to distinguish committed from failed")
	}
}

func TestSearch_ReturnsRankedResultsWithText(t *testing.T) {
	mockEmbedding := &testutil.MockEmbeddingClient{
		Dim: 3,
		Vectors: map[string][]float32{
			"The sky is blue.":       {1, 0, 0},
			"Water boils at 100C.":   {0, 1, 0},
			"What color is the sky?": {0.9, 0.1, 0},
		},
	}
	mockIndex := testutil.NewMockVectorIndex()
	p := newTestPipeline(t, mockEmbedding, mockIndex)

	props := []pipeline.Proposition{
		{Content: "The sky is blue.", SourceIndex: 0},
		{Content: "Water boils at 100C.", SourceIndex: 1},
	}
	if _, err := p.Ingest(context.Background(), props); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	results, err := p.Search(context.Background(), "What color is the sky?", 1)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].ID != "prop_0" {
		t.Errorf("Expected top match prop_0, got %s", results[0].ID)
	}
	if results[0].Text != "The sky is blue." {
		t.Errorf("Expected display text from content metadata, got %q", results[0].Text)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	p := newTestPipeline(t, &testutil.MockEmbeddingClient{Dim: 3}, testutil.NewMockVectorIndex())

	if _, err := p.Search(context.Background(), "   ", 5); err == nil {
		t.Error("Expected error for empty query")
	}
}

func TestSearch_InvalidTopK(t *testing.T) {
	p := newTestPipeline(t, &testutil.MockEmbeddingClient{Dim: 3}, testutil.NewMockVectorIndex())

	if _, err := p.Search(context.Background(), "query", 0); err == nil {
		t.Error("Expected error for topK 0")
	}
}

func TestSearch_RequestsMetadata(t *testing.T) {
	mockIndex := testutil.NewMockVectorIndex()
	var gotIncludeMetadata bool
	mockIndex.QueryFunc = func(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]pipeline.VectorMatch, error) {
		gotIncludeMetadata = includeMetadata
		return nil, nil
	}
	p := newTestPipeline(t, &testutil.MockEmbeddingClient{Dim: 3}, mockIndex)

	if _, err := p.Search(context.Background(), "query", 5); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !gotIncludeMetadata {
		t.Error("Expected the query path to request metadata")
	}
}

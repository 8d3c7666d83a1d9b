package adapters

import (
	"errors"
	"testing"

	pc "github.com/kushwanth-masupalli/QueryVault/clients/pinecone"
	"github.com/kushwanth-masupalli/QueryVault/config"
	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

func TestToPineconeVectors_EncodesMetadata(t *testing.T) {
	records := []pipeline.Record{
		{
			ID:       "prop_0",
			Values:   []float32{0.1, 0.2},
			Metadata: map[string]any{"content": "The sky is blue."},
		},
	}

	vectors, err := toPineconeVectors(records)
	if err != nil {
		t.Fatalf("toPineconeVectors failed: %v", err)
	}

	if vectors[0].Id != "prop_0" {
		t.Errorf("Expected id 'prop_0', got %s", vectors[0].Id)
	}
	if vectors[0].Metadata == nil {
		t.Fatal("Expected metadata to be encoded")
	}
	if got := vectors[0].Metadata.AsMap()["content"]; got != "The sky is blue." {
		t.Errorf("Expected content metadata preserved, got %v", got)
	}
}

func TestToPineconeVectors_NilMetadataStaysNil(t *testing.T) {
	vectors, err := toPineconeVectors([]pipeline.Record{{ID: "prop_0", Values: []float32{0.1}}})
	if err != nil {
		t.Fatalf("toPineconeVectors failed: %v", err)
	}
	if vectors[0].Metadata != nil {
		t.Error("Expected nil metadata passed through unchanged")
	}
}

func TestToVectorMatch_MissingMetadata(t *testing.T) {
	match := pc.QueryMatch{Vector: &pc.Vector{Id: "prop_3"}, Score: 0.91}

	converted := toVectorMatch(match)
	if converted.ID != "prop_3" {
		t.Errorf("Expected id 'prop_3', got %s", converted.ID)
	}
	if converted.Score != 0.91 {
		t.Errorf("Expected score 0.91, got %f", converted.Score)
	}
	if converted.Metadata != nil {
		t.Error("Expected nil metadata when store returned none")
	}
}

func TestConvertReceipt(t *testing.T) {
	batchErr := errors.New("connection reset")
	receipt := &pc.UpsertReceipt{
		Written: 200,
		Batches: []pc.BatchStatus{
			{Start: 0, End: 200},
			{Start: 200, End: 400, Err: batchErr},
		},
	}

	converted := convertReceipt(receipt)
	if converted.Written != 200 {
		t.Errorf("Expected 200 written, got %d", converted.Written)
	}
	if len(converted.Batches) != 2 {
		t.Fatalf("Expected 2 batches, got %d", len(converted.Batches))
	}
	if !errors.Is(converted.Batches[1].Err, batchErr) {
		t.Error("Expected batch error carried through")
	}

	if convertReceipt(nil) != nil {
		t.Error("Expected nil receipt to stay nil")
	}
}

func TestNewEmbeddingClient_Local(t *testing.T) {
	cfg := config.Default()

	client, err := NewEmbeddingClient(cfg)
	if err != nil {
		t.Fatalf("NewEmbeddingClient failed: %v", err)
	}
	if client.Dimension() != 384 {
		t.Errorf("Expected dimension 384, got %d", client.Dimension())
	}
}

func TestNewEmbeddingClient_VoyageRequiresKey(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = "voyage"

	_, err := NewEmbeddingClient(cfg)

	var missing *config.MissingKeyError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingKeyError, got %v", err)
	}
	if missing.Key != "VOYAGEAI_API_KEY" {
		t.Errorf("Expected VOYAGEAI_API_KEY named, got %s", missing.Key)
	}
}

func TestNewEmbeddingClient_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = "mystery"

	if _, err := NewEmbeddingClient(cfg); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestNewEmbeddingClient_EmptyProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Embedding.Provider = ""

	// Config validation rejects an empty provider, so the adapter must not
	// silently treat it as local either.
	if _, err := NewEmbeddingClient(cfg); err == nil {
		t.Error("Expected error for empty provider")
	}
}

// Package adapters wires the concrete clients to the pipeline interfaces.
package adapters

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kushwanth-masupalli/QueryVault/clients/minilm"
	pc "github.com/kushwanth-masupalli/QueryVault/clients/pinecone"
	"github.com/kushwanth-masupalli/QueryVault/clients/voyage"
	"github.com/kushwanth-masupalli/QueryVault/config"
	"github.com/kushwanth-masupalli/QueryVault/pipeline"
)

// NewEmbeddingClient builds the configured embedding provider
func NewEmbeddingClient(cfg *config.Config) (pipeline.EmbeddingClient, error) {
	// Validation already enforces oneof=local voyage, so anything else here
	// is a programming error, not a user input problem.
	switch cfg.Embedding.Provider {
	case "local":
		return minilm.NewClient(
			cfg.Embedding.BaseURL,
			cfg.Embedding.Model,
			cfg.Embedding.Dim,
			cfg.RequestTimeout(),
			cfg.InitTimeout(),
		), nil
	case "voyage":
		if cfg.VoyageAPIKey == "" {
			return nil, &config.MissingKeyError{Key: "VOYAGEAI_API_KEY"}
		}
		return voyage.NewClient(cfg.VoyageAPIKey, cfg.Embedding.Model, cfg.Embedding.Dim)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// PineconeIndexAdapter adapts the Pinecone client to the VectorIndex interface
type PineconeIndexAdapter struct {
	index interface {
		Upsert(ctx context.Context, vectors []*pc.Vector) (*pc.UpsertReceipt, error)
		Query(ctx context.Context, queryVector []float32, topK int, includeMetadata bool) ([]pc.QueryMatch, error)
		Fetch(ctx context.Context, ids []string) (map[string]*pc.Vector, error)
	}
}

// NewPineconeIndexAdapter connects to the configured index and namespace
func NewPineconeIndexAdapter(cfg *config.Config) (*PineconeIndexAdapter, error) {
	service, err := pc.NewPineconeService(cfg.PineconeAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone service: %w", err)
	}

	index, err := service.ForIndex(cfg.PineconeHost, cfg.Namespace, pc.IndexOptions{
		Dimension:      cfg.Embedding.Dim,
		BatchSize:      cfg.Index.BatchSize,
		RequestTimeout: cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}

	return &PineconeIndexAdapter{index: index}, nil
}

// Upsert implements VectorIndex
func (a *PineconeIndexAdapter) Upsert(ctx context.Context, records []pipeline.Record) (*pipeline.UpsertReceipt, error) {
	vectors, err := toPineconeVectors(records)
	if err != nil {
		return nil, err
	}

	receipt, upsertErr := a.index.Upsert(ctx, vectors)
	return convertReceipt(receipt), upsertErr
}

// Query implements VectorIndex
func (a *PineconeIndexAdapter) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]pipeline.VectorMatch, error) {
	matches, err := a.index.Query(ctx, vector, topK, includeMetadata)
	if err != nil {
		return nil, err
	}

	results := make([]pipeline.VectorMatch, len(matches))
	for i, match := range matches {
		results[i] = toVectorMatch(match)
	}
	return results, nil
}

// Fetch implements VectorIndex
func (a *PineconeIndexAdapter) Fetch(ctx context.Context, ids []string) (map[string]pipeline.StoredRecord, error) {
	vectors, err := a.index.Fetch(ctx, ids)
	if err != nil {
		return nil, err
	}

	found := make(map[string]pipeline.StoredRecord, len(vectors))
	for id, vector := range vectors {
		record := pipeline.StoredRecord{ID: id, Values: vector.Values}
		if vector.Metadata != nil {
			record.Metadata = vector.Metadata.AsMap()
		}
		found[id] = record
	}
	return found, nil
}

func toPineconeVectors(records []pipeline.Record) ([]*pc.Vector, error) {
	vectors := make([]*pc.Vector, len(records))
	for i, record := range records {
		vector := &pc.Vector{
			Id:     record.ID,
			Values: record.Values,
		}
		if record.Metadata != nil {
			metadataStruct, err := structpb.NewStruct(record.Metadata)
			if err != nil {
				return nil, fmt.Errorf("failed to encode metadata for %s: %w", record.ID, err)
			}
			vector.Metadata = &pc.Metadata{Fields: metadataStruct.Fields}
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func toVectorMatch(match pc.QueryMatch) pipeline.VectorMatch {
	result := pipeline.VectorMatch{Score: match.Score}
	if match.Vector != nil {
		result.ID = match.Vector.Id
		if match.Vector.Metadata != nil {
			result.Metadata = match.Vector.Metadata.AsMap()
		}
	}
	return result
}

func convertReceipt(receipt *pc.UpsertReceipt) *pipeline.UpsertReceipt {
	if receipt == nil {
		return nil
	}
	converted := &pipeline.UpsertReceipt{Written: receipt.Written}
	for _, batch := range receipt.Batches {
		converted.Batches = append(converted.Batches, pipeline.BatchStatus{
			Start: batch.Start,
			End:   batch.End,
			Err:   batch.Err,
		})
	}
	return converted
}

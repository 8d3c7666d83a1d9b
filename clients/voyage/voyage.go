// Package voyage provides the Voyage AI embedding provider. The hosted index
// dimension is pinned through the OutputDimension request option so either
// provider can back the same index.
package voyage

import (
	"context"
	"fmt"

	"github.com/austinfhunter/voyageai"
)

const DefaultModel = "voyage-3.5-lite"

// EmbeddingType selects Voyage's input-type hint.
type EmbeddingType string

const (
	EmbeddingTypeDocument EmbeddingType = "document"
	EmbeddingTypeQuery    EmbeddingType = "query"
	EmbeddingTypeDefault  EmbeddingType = ""
)

// Client handles generating embeddings for text. Each client owns its own
// underlying SDK client; there is no package-level state.
type Client struct {
	vc        *voyageai.VoyageClient
	model     string
	dimension int
}

// NewClient creates a Voyage embedding client producing vectors of the given
// dimension.
func NewClient(apiKey, model string, dimension int) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("voyage API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dimension)
	}

	return &Client{
		vc: voyageai.NewClient(&voyageai.VoyageClientOpts{
			Key: apiKey,
		}),
		model:     model,
		dimension: dimension,
	}, nil
}

// GenerateEmbedding generates an embedding for a single text using VoyageAI
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.GenerateTypedEmbedding(ctx, text, EmbeddingTypeDefault)
}

// GenerateTypedEmbedding generates an embedding with an explicit input-type hint
func (c *Client) GenerateTypedEmbedding(ctx context.Context, text string, embeddingType EmbeddingType) ([]float32, error) {
	dimensions := c.dimension
	embeddings, err := c.vc.Embed(
		[]string{text},
		c.model,
		&voyageai.EmbeddingRequestOpts{
			InputType:       parseEmbeddingType(embeddingType),
			OutputDimension: &dimensions,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("could not get embedding: %w", err)
	}
	if len(embeddings.Data) == 0 {
		return nil, fmt.Errorf("voyage returned no embedding data")
	}

	vector := embeddings.Data[0].Embedding
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("voyage returned dimension %d, expected %d", len(vector), c.dimension)
	}
	return vector, nil
}

// Dimension returns the dimension count for the embedding model
func (c *Client) Dimension() int {
	return c.dimension
}

func parseEmbeddingType(embeddingType EmbeddingType) *string {
	if embeddingType != EmbeddingTypeDefault {
		value := string(embeddingType)
		return &value
	}
	return nil
}

package pinecone

import (
	"context"
	"fmt"
	"time"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// pineconeService provides access to Pinecone indexes using the official SDK
type pineconeService struct {
	client *pinecone.Client
}

// vectorAPI is the slice of the SDK index connection used by indexOperations.
// The SDK ships no interfaces of its own; declaring one here lets tests
// substitute a fake connection.
type vectorAPI interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
}

// indexOperations provides operations for a specific Pinecone index. The
// namespace is bound at connection time, so every operation issued through
// one instance hits the same namespace.
type indexOperations struct {
	conn           vectorAPI
	dimension      int
	batchSize      int
	requestTimeout time.Duration
	allowBare      bool
}

// IndexOptions configures an index connection.
type IndexOptions struct {
	// Dimension is the index dimension; every vector sent or queried is
	// checked against it locally before any network call.
	Dimension int

	// BatchSize bounds upsert and fetch request sizes. Defaults to
	// DefaultBatchSize.
	BatchSize int

	// RequestTimeout bounds each individual network call.
	RequestTimeout time.Duration

	// AllowBareVectors permits upserting records without metadata. Off by
	// default: an upsert replaces the whole stored record, so a bare vector
	// silently drops metadata previously stored under the same id.
	AllowBareVectors bool
}

// NewPineconeService creates a new Pinecone service instance using the official SDK
func NewPineconeService(apiKey string) (*pineconeService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("pinecone API key is required")
	}

	client, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pinecone client: %w", err)
	}

	return &pineconeService{client: client}, nil
}

// ForIndex returns an index gateway bound to the given host and namespace
func (ps *pineconeService) ForIndex(host, namespace string, opts IndexOptions) (*indexOperations, error) {
	if host == "" {
		return nil, fmt.Errorf("pinecone index host is required")
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", opts.Dimension)
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	conn, err := ps.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to pinecone index: %w", err)
	}

	return &indexOperations{
		conn:           conn,
		dimension:      opts.Dimension,
		batchSize:      opts.BatchSize,
		requestTimeout: opts.RequestTimeout,
		allowBare:      opts.AllowBareVectors,
	}, nil
}

// Upsert stores vectors in the index, splitting them into batches. Every
// vector is validated locally first; a dimension mismatch aborts the whole
// call before anything is sent. Batches commit independently: a failed batch
// stops the remaining ones but does not roll back earlier commits, and the
// receipt records which ranges went through.
func (idx *indexOperations) Upsert(ctx context.Context, vectors []*Vector) (*UpsertReceipt, error) {
	for _, v := range vectors {
		if len(v.Values) != idx.dimension {
			return nil, &DimensionMismatchError{ID: v.Id, Got: len(v.Values), Want: idx.dimension}
		}
		if !idx.allowBare && (v.Metadata == nil || len(v.Metadata.Fields) == 0) {
			return nil, &BareVectorError{ID: v.Id}
		}
	}

	receipt := &UpsertReceipt{}
	var firstErr error

	for start := 0; start < len(vectors); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(vectors) {
			end = len(vectors)
		}

		if firstErr != nil {
			receipt.Batches = append(receipt.Batches, BatchStatus{Start: start, End: end, Err: ErrBatchSkipped})
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
		count, err := idx.conn.UpsertVectors(callCtx, vectors[start:end])
		cancel()

		receipt.Batches = append(receipt.Batches, BatchStatus{Start: start, End: end, Err: err})
		if err != nil {
			firstErr = err
			continue
		}
		receipt.Written += int(count)
	}

	if firstErr != nil {
		return receipt, fmt.Errorf("upsert committed %d of %d vectors: %w", receipt.Written, len(vectors), firstErr)
	}
	return receipt, nil
}

// Query performs a vector similarity search in the index. Matches come back
// sorted by descending score; ordering between equal scores is up to the
// service.
func (idx *indexOperations) Query(ctx context.Context, queryVector []float32, topK int, includeMetadata bool) ([]QueryMatch, error) {
	if len(queryVector) != idx.dimension {
		return nil, &DimensionMismatchError{ID: "query vector", Got: len(queryVector), Want: idx.dimension}
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: includeMetadata,
	}

	callCtx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()

	queryResponse, err := idx.conn.QueryByVectorValues(callCtx, queryRequest)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	matches := make([]QueryMatch, 0, len(queryResponse.Matches))
	for _, match := range queryResponse.Matches {
		if match == nil {
			continue
		}
		matches = append(matches, *match)
	}

	return matches, nil
}

// Fetch retrieves vectors by id, batching large id sets. Ids not present in
// the index are simply absent from the result map.
func (idx *indexOperations) Fetch(ctx context.Context, ids []string) (map[string]*Vector, error) {
	found := make(map[string]*Vector, len(ids))

	for start := 0; start < len(ids); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(ids) {
			end = len(ids)
		}

		callCtx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
		resp, err := idx.conn.FetchVectors(callCtx, ids[start:end])
		cancel()
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}

		for id, vector := range resp.Vectors {
			found[id] = vector
		}
	}

	return found, nil
}

// Delete removes vectors from the index
func (idx *indexOperations) Delete(ctx context.Context, ids []string) error {
	callCtx, cancel := context.WithTimeout(ctx, idx.requestTimeout)
	defer cancel()
	return idx.conn.DeleteVectorsById(callCtx, ids)
}

package pinecone

import (
	"errors"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// Vector represents a vector with metadata (re-exported from SDK for convenience)
type Vector = pinecone.Vector

// QueryMatch represents a match from query results (re-exported from SDK for convenience)
type QueryMatch = pinecone.ScoredVector

// Metadata represents the metadata for a vector (re-exported from SDK for convenience)
type Metadata = pinecone.Metadata

// DefaultBatchSize keeps individual upsert/fetch requests within the
// service's request-size limits.
const DefaultBatchSize = 200

// ErrBatchSkipped marks batches that were never sent because an earlier
// batch in the same call failed.
var ErrBatchSkipped = errors.New("batch skipped: an earlier batch failed")

// DimensionMismatchError reports a vector whose length does not match the
// index dimension. It is raised before any network call is made.
type DimensionMismatchError struct {
	ID   string
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector %q has dimension %d, index expects %d", e.ID, e.Got, e.Want)
}

// BareVectorError reports an upsert of a record without metadata. The store
// replaces the whole record on upsert, so a bare vector destroys any metadata
// previously stored under the same id.
type BareVectorError struct {
	ID string
}

func (e *BareVectorError) Error() string {
	return fmt.Sprintf("vector %q has no metadata; upserting it would clear any stored metadata (set AllowBareVectors to override)", e.ID)
}

// BatchStatus records the outcome of one upsert batch covering records
// [Start, End) of the input slice.
type BatchStatus struct {
	Start int
	End   int
	Err   error
}

// UpsertReceipt reports how much of an upsert was committed. Batches are
// committed independently; there is no rollback, so a failed call can still
// have written earlier batches.
type UpsertReceipt struct {
	Written int
	Batches []BatchStatus
}

// Failed returns the batches that were not committed.
func (r *UpsertReceipt) Failed() []BatchStatus {
	var failed []BatchStatus
	for _, b := range r.Batches {
		if b.Err != nil {
			failed = append(failed, b)
		}
	}
	return failed
}

package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Repair reconciles the intended (id, content) pairs against the index,
// restoring metadata lost to bare overwrites. Existing vector values are
// reused as-is so nothing gets re-embedded unnecessarily; only ids with no
// stored values are embedded fresh. Running it again with the same pairs
// leaves the stored state unchanged.
func (p *Pipeline) Repair(ctx context.Context, pairs []RepairPair) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	ids := make([]string, len(pairs))
	for i, pair := range pairs {
		ids[i] = pair.ID
	}

	existing, err := p.index.Fetch(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch existing records: %w", err)
	}

	records := make([]Record, 0, len(pairs))
	for _, pair := range pairs {
		content := strings.TrimSpace(pair.Content)
		if content == "" {
			return 0, fmt.Errorf("repair pair %s has empty content", pair.ID)
		}

		var values []float32
		if stored, ok := existing[pair.ID]; ok && len(stored.Values) > 0 {
			values = stored.Values
		} else {
			values, err = p.embedder.GenerateEmbedding(ctx, content)
			if err != nil {
				return 0, fmt.Errorf("failed to embed %s: %w", pair.ID, err)
			}
		}

		records = append(records, Record{
			ID:       pair.ID,
			Values:   values,
			Metadata: map[string]any{MetadataContentKey: content},
		})
	}

	receipt, err := p.index.Upsert(ctx, records)
	if err != nil {
		written := 0
		if receipt != nil {
			written = receipt.Written
		}
		return written, fmt.Errorf("failed to upsert repaired records: %w", err)
	}

	return receipt.Written, nil
}

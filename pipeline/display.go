package pipeline

import (
	"encoding/json"
	"fmt"
)

// NoMetadataMarker is displayed for matches that carry no metadata at all.
const NoMetadataMarker = "[no metadata]"

// DisplayPolicy shapes a match's display text from its metadata. The same
// index may have been populated by producers using different metadata key
// conventions, so the precedence is declared configuration: the first
// candidate key holding a non-empty string wins, then a serialized dump of
// the whole mapping, then the no-metadata marker.
type DisplayPolicy struct {
	Keys []string
}

// DefaultDisplayPolicy returns the conventional key precedence
func DefaultDisplayPolicy() DisplayPolicy {
	return DisplayPolicy{Keys: []string{"content", "text", "chunk"}}
}

// Render extracts display text from a metadata mapping
func (dp DisplayPolicy) Render(metadata map[string]any) string {
	if len(metadata) == 0 {
		return NoMetadataMarker
	}

	for _, key := range dp.Keys {
		if value, ok := metadata[key]; ok {
			if s, ok := value.(string); ok && s != "" {
				return s
			}
		}
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Sprintf("%v", metadata)
	}
	return string(raw)
}

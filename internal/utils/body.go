package utils

import (
	"encoding/json"
	"fmt"
)

// MergeBody serialises body and overlays the extra key-value pairs on top of
// it, returning the merged object as a map ready for re-serialisation.
// Keys in extra win over keys produced by body. A nil or empty extra returns
// body unchanged without the marshal round-trip.
//
// Providers use this to apply caller-supplied passthrough fields to a typed
// request struct without the struct having to know about them.
func MergeBody(body any, extra map[string]any) (any, error) {
	if len(extra) == 0 {
		return body, nil
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request body: %w", err)
	}

	var merged map[string]any
	if err := json.Unmarshal(encoded, &merged); err != nil {
		return nil, fmt.Errorf("error remarshaling request body: %w", err)
	}

	for key, value := range extra {
		merged[key] = value
	}

	return merged, nil
}

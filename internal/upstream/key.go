package upstream

import (
	"encoding/json"
	"fmt"
)

// CacheKey builds the canonical cache key for an operation:
// "<source>:<op>:<canonical-json>". encoding/json marshals map keys in
// sorted order, so the same logical parameters always produce the same
// key regardless of insertion order. API keys must never appear in
// params.
func CacheKey(source, op string, params map[string]any) string {
	if len(params) == 0 {
		return fmt.Sprintf("%s:%s", source, op)
	}
	b, err := json.Marshal(params)
	if err != nil {
		// Unmarshalable params would defeat coalescing; fall back to a
		// best-effort fingerprint.
		return fmt.Sprintf("%s:%s:%v", source, op, params)
	}
	return fmt.Sprintf("%s:%s:%s", source, op, b)
}

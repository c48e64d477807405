package llm

import (
	"encoding/json"
	"fmt"
)

// DecodeJSON parses model output into T after stripping code fences.
// Model output is untrusted: callers must treat an error as "the model did
// not follow the format" and fall back, never as fatal.
func DecodeJSON[T any](raw string) (*T, error) {
	sanitized := SanitizeJSON(raw)
	if sanitized == "" {
		return nil, fmt.Errorf("llm: empty payload")
	}
	var out T
	if err := json.Unmarshal([]byte(sanitized), &out); err != nil {
		return nil, fmt.Errorf("llm: decode payload: %w", err)
	}
	return &out, nil
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// CleanJSON strips markdown fences and any prose around the outermost JSON object.
func CleanJSON(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```JSON")
		cleaned = strings.TrimPrefix(cleaned, "```")
	}
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)
	if idx := strings.IndexRune(cleaned, '{'); idx >= 0 {
		if end := strings.LastIndex(cleaned, "}"); end >= idx {
			cleaned = cleaned[idx : end+1]
		}
	}
	return strings.TrimSpace(cleaned)
}

// DecodeJSON parses LLM text as a JSON object, validates it against schema
// (when non-nil) and decodes it into v. Every failure wraps ErrMalformed.
func DecodeJSON(raw string, schema *jsonschema.Resolved, v any) error {
	cleaned := CleanJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", ErrMalformed)
	}

	var instance any
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, ok := instance.(map[string]any); !ok {
		return fmt.Errorf("%w: expected a JSON object", ErrMalformed)
	}
	if schema != nil {
		if err := schema.Validate(instance); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}

// MustResolve resolves a package-level schema literal.
func MustResolve(s *jsonschema.Schema) *jsonschema.Resolved {
	resolved, err := s.Resolve(nil)
	if err != nil {
		panic(fmt.Sprintf("llm: invalid schema: %v", err))
	}
	return resolved
}

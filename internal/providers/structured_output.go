package providers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrUnparseable is wrapped by ParseStructuredJSON when no JSON value could be
// recovered from model output.
var ErrUnparseable = errors.New("failed to parse structured JSON")

// compiledSchemas caches compiled validators keyed by raw schema text.
var compiledSchemas sync.Map

// ParseStructuredJSON parses JSON from model output, with lightweight recovery
// for markdown code fences and surrounding text.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty output", ErrUnparseable)
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	var lastErr error
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}

		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			lastErr = err
			continue
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrUnparseable, lastErr)
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence (and its language tag).
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ""
	}

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start := -1
	closeChar := ""
	switch {
	case objectStart >= 0 && arrayStart >= 0:
		if objectStart < arrayStart {
			start, closeChar = objectStart, "}"
		} else {
			start, closeChar = arrayStart, "]"
		}
	case objectStart >= 0:
		start, closeChar = objectStart, "}"
	case arrayStart >= 0:
		start, closeChar = arrayStart, "]"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

// ValidateStructuredJSON validates parsed JSON against schemaRaw. schemaRaw
// may be a bare schema or the {"name","strict","schema"} wrapper.
func ValidateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	schema, err := compileSchema(schemaRaw)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON for validation: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)
	if cached, ok := compiledSchemas.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	coreSchema, err := extractValidationSchema(schemaRaw)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(coreSchema)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}

	compiledSchemas.Store(key, schema)
	return schema, nil
}

func extractValidationSchema(schemaRaw json.RawMessage) (json.RawMessage, error) {
	var root any
	if err := json.Unmarshal(schemaRaw, &root); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}

	if rootMap, ok := root.(map[string]any); ok {
		// {"name","strict","schema":{...}}
		if inner, ok := rootMap["schema"]; ok {
			b, err := json.Marshal(inner)
			if err != nil {
				return nil, fmt.Errorf("failed to serialize inner schema: %w", err)
			}
			return b, nil
		}
		// {"type":"json_schema","json_schema":{"schema":...}}
		if rawInner, ok := rootMap["json_schema"]; ok {
			if innerMap, ok := rawInner.(map[string]any); ok {
				if innerSchema, ok := innerMap["schema"]; ok {
					b, err := json.Marshal(innerSchema)
					if err != nil {
						return nil, fmt.Errorf("failed to serialize json_schema.schema: %w", err)
					}
					return b, nil
				}
			}
		}
	}

	return schemaRaw, nil
}

// decodeSchemaSpec reads a ResponseFormat's schema document. A bare schema is
// wrapped under the given fallback name.
func decodeSchemaSpec(rf *ResponseFormat, fallbackName string) (*JSONSchemaSpec, error) {
	if rf == nil || len(rf.JSONSchema) == 0 {
		return nil, nil
	}
	var spec JSONSchemaSpec
	if err := json.Unmarshal(rf.JSONSchema, &spec); err != nil {
		return nil, fmt.Errorf("invalid response format schema: %w", err)
	}
	if spec.Schema == nil {
		var bare map[string]any
		if err := json.Unmarshal(rf.JSONSchema, &bare); err != nil {
			return nil, fmt.Errorf("invalid response format schema: %w", err)
		}
		spec = JSONSchemaSpec{Name: fallbackName, Strict: true, Schema: bare}
	}
	if spec.Name == "" {
		spec.Name = fallbackName
	}
	return &spec, nil
}

package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackzampolin/sides/internal/providers"
)

// ErrMalformed is returned when a response is not valid JSON.
var ErrMalformed = errors.New("malformed dialogue response")

// Line is one dialogue line as returned for a single chunk. LineID and
// Order are chunk-local and are replaced when results are merged.
type Line struct {
	LineID    string  `json:"lineId"`
	Order     float64 `json:"order"`
	Character string  `json:"character"`
	Text      string  `json:"text"`
}

// ParseLines decodes a structured response into chunk-local lines.
//
// A payload whose "lines" member is missing or not an array yields no lines
// and no error. Elements that are not objects, and fields that are not
// strings, decode to empty values rather than being dropped.
func ParseLines(raw json.RawMessage) ([]Line, error) {
	if !json.Valid(raw) {
		return nil, ErrMalformed
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		// Valid JSON that is not an object carries no lines.
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(payload["lines"], &items); err != nil {
		return nil, nil
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(item, &obj); err != nil {
			lines = append(lines, Line{})
			continue
		}
		lines = append(lines, Line{
			LineID:    stringField(obj["lineId"]),
			Order:     numberField(obj["order"]),
			Character: stringField(obj["character"]),
			Text:      stringField(obj["text"]),
		})
	}
	return lines, nil
}

// DecodeLines parses raw response content, tolerating code fences and
// surrounding prose, then decodes it with ParseLines.
func DecodeLines(content string) ([]Line, error) {
	raw, err := parseContent(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return ParseLines(raw)
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func numberField(raw json.RawMessage) float64 {
	var n float64
	if len(raw) == 0 || json.Unmarshal(raw, &n) != nil {
		return 0
	}
	return n
}

// Validate checks raw against the extraction schema.
func Validate(raw json.RawMessage) error {
	return providers.ValidateStructuredJSON(SchemaJSON(), raw)
}

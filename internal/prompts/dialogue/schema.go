package dialogue

import "encoding/json"

// SchemaName is the name sent with the structured-output request.
const SchemaName = "dialogue_schema"

func stringProp() map[string]any { return map[string]any{"type": "string"} }

// ExtractionSchema defines the structured output for one chunk.
var ExtractionSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   SchemaName,
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"lines": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"lineId":    stringProp(),
							"order":     map[string]any{"type": "number"},
							"character": stringProp(),
							"text":      stringProp(),
						},
						"required":             []string{"lineId", "order", "character", "text"},
						"additionalProperties": false,
					},
				},
			},
			"required":             []string{"lines"},
			"additionalProperties": false,
		},
	},
}

// SchemaJSON returns the {"name","strict","schema"} document as JSON.
func SchemaJSON() json.RawMessage {
	raw, _ := json.Marshal(ExtractionSchema["json_schema"])
	return raw
}

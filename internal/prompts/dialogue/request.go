package dialogue

import (
	"encoding/json"

	"github.com/jackzampolin/sides/internal/providers"
)

// RequestOptions tunes the chat request for a chunk.
type RequestOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	RequestID   string
}

// BuildRequest creates the chat request that extracts dialogue from text.
func (cp *CompiledPrompts) BuildRequest(text string, opts RequestOptions) (*providers.ChatRequest, error) {
	user, err := cp.User(text)
	if err != nil {
		return nil, err
	}
	return &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: cp.System()},
			{Role: "user", Content: user},
		},
		Model:          opts.Model,
		Temperature:    opts.Temperature,
		MaxTokens:      opts.MaxTokens,
		ResponseFormat: buildResponseFormat(),
		RequestID:      opts.RequestID,
	}, nil
}

// BuildRequest creates a request using the default prompts.
func BuildRequest(text string, opts RequestOptions) (*providers.ChatRequest, error) {
	cp, _ := Prompts{}.Compile()
	return cp.BuildRequest(text, opts)
}

func buildResponseFormat() *providers.ResponseFormat {
	return &providers.ResponseFormat{
		Type:       "json_schema",
		JSONSchema: SchemaJSON(),
	}
}

func parseContent(content string) (json.RawMessage, error) {
	return providers.ParseStructuredJSON(content)
}

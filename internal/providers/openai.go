package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey       string
	DefaultModel string        // "gpt-4o-mini" (default)
	RateLimit    float64       // Requests per second, 0 = unlimited
	MaxRetries   int           // SDK transport retries, 0 = none
	Timeout      time.Duration // HTTP timeout, 0 = none
	BaseURL      string        // Optional (tests)
	HTTPClient   *http.Client  // Optional (tests)
}

// OpenAIClient implements LLMClient on the OpenAI Responses API with strict
// JSON schema output.
type OpenAIClient struct {
	apiKey       string
	defaultModel string
	rateLimit    float64
	maxRetries   int
	timeout      time.Duration
	baseURL      string
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenAIDefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		maxRetries:   cfg.MaxRetries,
		timeout:      cfg.Timeout,
		baseURL:      cfg.BaseURL,
		client:       openai.NewClient(opts...),
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// RequestsPerSecond returns the configured rate limit.
func (c *OpenAIClient) RequestsPerSecond() float64 {
	return c.rateLimit
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.defaultModel
}

// Chat sends one Responses API request. System messages become the request
// instructions; everything else is sent as the input text.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenAIName,
		ModelUsed: model,
		Attempts:  1,
	}
	fail := func(errType string, err error) (*ChatResult, error) {
		result.Success = false
		result.ErrorType = errType
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	system, input := systemAndUser(req.Messages)
	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(input),
		},
	}
	if system != "" {
		params.Instructions = openai.String(system)
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	spec, err := decodeSchemaSpec(req.ResponseFormat, "output")
	if err != nil {
		return fail("invalid_request", err)
	}
	if spec != nil {
		format := responses.ResponseFormatTextConfigParamOfJSONSchema(spec.Name, spec.Schema)
		format.OfJSONSchema.Strict = openai.Bool(spec.Strict)
		params.Text = responses.ResponseTextConfigParam{Format: format}
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return fail("http_error", mapOpenAIError(err))
	}

	content := resp.OutputText()
	result.ModelUsed = string(resp.Model)
	result.PromptTokens = int(resp.Usage.InputTokens)
	result.CompletionTokens = int(resp.Usage.OutputTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	if strings.TrimSpace(content) == "" {
		return fail("empty_response", ErrNoContent)
	}

	result.Success = true
	result.Content = content
	if spec != nil {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = err.Error()
		}
	}
	return result, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		return &StatusError{Provider: "OpenAI", StatusCode: apiErr.StatusCode, Body: apiErr.Message}
	}
	return err
}

var _ LLMClient = (*OpenAIClient)(nil)
var _ RateLimited = (*OpenAIClient)(nil)

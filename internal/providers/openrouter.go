package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
)

const (
	OpenRouterName         = "openrouter"
	OpenRouterBaseURL      = "https://openrouter.ai/api/v1"
	OpenRouterDefaultModel = "openai/gpt-4o-mini"
)

// OpenRouterConfig holds configuration for the OpenRouter client.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	// Rate limiting
	RPS float64 // Requests per second, 0 = unlimited
	// MaxRetries is the number of extra attempts after the first.
	// Zero sends each request exactly once.
	MaxRetries int
	RetryDelay time.Duration // Base delay between retries (default: 1s)
}

// OpenRouterClient implements LLMClient using the OpenRouter chat completions API.
type OpenRouterClient struct {
	apiKey       string
	baseURL      string
	defaultModel string
	client       *http.Client
	rps          float64
	maxRetries   int
	retryDelay   time.Duration
}

// NewOpenRouterClient creates a new OpenRouter client.
func NewOpenRouterClient(cfg OpenRouterConfig) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenRouterBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenRouterDefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}

	return &OpenRouterClient{
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		client:       &http.Client{Timeout: cfg.Timeout},
		rps:          cfg.RPS,
		maxRetries:   cfg.MaxRetries,
		retryDelay:   cfg.RetryDelay,
	}
}

// Name returns the client identifier.
func (c *OpenRouterClient) Name() string {
	return OpenRouterName
}

// RequestsPerSecond returns the RPS limit for rate limiting.
func (c *OpenRouterClient) RequestsPerSecond() float64 {
	return c.rps
}

// Model returns the configured default model.
func (c *OpenRouterClient) Model() string {
	return c.defaultModel
}

// Chat sends a chat completion request.
func (c *OpenRouterClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	orReq := openRouterRequest{
		Model:       model,
		Messages:    make([]openRouterMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		orReq.Messages = append(orReq.Messages, openRouterMessage{Role: m.Role, Content: m.Content})
	}
	if req.ResponseFormat != nil {
		orReq.ResponseFormat = &openRouterResponseFormat{
			Type:       req.ResponseFormat.Type,
			JSONSchema: req.ResponseFormat.JSONSchema,
		}
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  OpenRouterName,
		ModelUsed: model,
	}
	fail := func(errType string, err error) (*ChatResult, error) {
		result.Success = false
		result.ErrorType = errType
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	orResp, attempts, err := c.doRequest(ctx, "/chat/completions", &orReq)
	result.Attempts = attempts
	if err != nil {
		return fail("http_error", err)
	}
	if orResp.Error != nil {
		return fail("api_error", fmt.Errorf("OpenRouter error: %s", orResp.Error.Message))
	}
	if len(orResp.Choices) == 0 {
		return fail("empty_response", ErrNoContent)
	}

	content := ""
	switch v := orResp.Choices[0].Message.Content.(type) {
	case nil:
	case string:
		content = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fail("content_marshal_error", fmt.Errorf("failed to marshal content: %w", err))
		}
		content = string(b)
	}

	result.Success = true
	result.Content = content
	if orResp.Model != "" {
		result.ModelUsed = orResp.Model
	}
	result.PromptTokens = orResp.Usage.PromptTokens
	result.CompletionTokens = orResp.Usage.CompletionTokens
	result.TotalTokens = orResp.Usage.TotalTokens
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	if req.ResponseFormat != nil && content != "" {
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

// doRequest posts body to path. Retries follow the client's MaxRetries with
// exponential backoff and jitter; with MaxRetries 0 the request is sent once.
func (c *OpenRouterClient) doRequest(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, int, error) {
	var (
		orResp   *openRouterResponse
		attempts int
	)

	err := retry.Do(
		func() error {
			attempts++
			if attempts > 1 {
				c.injectNonce(orReq, attempts-1)
			}
			resp, err := c.post(ctx, path, orReq)
			if err != nil {
				return err
			}
			orResp = resp
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.maxRetries)+1),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(10*time.Second),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(max(c.retryDelay/2, time.Millisecond)),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, attempts, err
	}
	return orResp, attempts, nil
}

func (c *OpenRouterClient) post(ctx context.Context, path string, orReq *openRouterRequest) (*openRouterResponse, error) {
	bodyBytes, err := json.Marshal(orReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/jackzampolin/sides")
	req.Header.Set("X-Title", "Sides")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Message:    fmt.Sprintf("OpenRouter rate limited: %s", string(respBody)),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "OpenRouter", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var orResp openRouterResponse
	if err := json.Unmarshal(respBody, &orResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &orResp, nil
}

// isRetryable reports whether a failed attempt may be sent again.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if _, ok := IsRateLimit(err); ok {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestEntityTooLarge, http.StatusUnprocessableEntity:
			// Retried with a nonce so upstream caches see a new request.
			return true
		default:
			return statusErr.StatusCode >= 500
		}
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// injectNonce appends a unique comment to the last user message so a retried
// request is not served from an upstream cache.
func (c *OpenRouterClient) injectNonce(req *openRouterRequest, attempt int) {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		nonce := uuid.New().String()[:16]
		req.Messages[i].Content += fmt.Sprintf("\n<!-- retry_%d_id: %s -->", attempt, nonce)
		return
	}
}

// OpenRouter API types

type openRouterRequest struct {
	Model          string                    `json:"model"`
	Messages       []openRouterMessage       `json:"messages"`
	Temperature    float64                   `json:"temperature,omitempty"`
	MaxTokens      int                       `json:"max_tokens,omitempty"`
	ResponseFormat *openRouterResponseFormat `json:"response_format,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

type openRouterResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *openRouterError `json:"error,omitempty"`
}

type openRouterError struct {
	Message string `json:"message"`
	Code    any    `json:"code,omitempty"`
}

var _ LLMClient = (*OpenRouterClient)(nil)
var _ RateLimited = (*OpenRouterClient)(nil)

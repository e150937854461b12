package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockClient is an LLMClient for testing.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ShouldFail   bool
	FailAfter    int // Fail after N requests (0 = never)
	ResponseText string
	ResponseJSON json.RawMessage
	RPS          float64

	// Respond, when set, decides the outcome of each request and overrides
	// the fields above. Returning a non-nil error fails the request.
	Respond func(ctx context.Context, req *ChatRequest) (string, error)

	// State
	requestCount atomic.Int64
	inFlight     atomic.Int64
	maxInFlight  atomic.Int64
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		Latency:      10 * time.Millisecond,
		ResponseText: "mock response",
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// RequestsPerSecond returns the configured rate limit.
func (c *MockClient) RequestsPerSecond() float64 {
	return c.RPS
}

// Chat sends a mock chat request.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	cur := c.inFlight.Add(1)
	defer c.inFlight.Add(-1)
	for {
		prev := c.maxInFlight.Load()
		if cur <= prev || c.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	result := &ChatResult{
		RequestID: fmt.Sprintf("mock-%d", count),
		Provider:  MockClientName,
		ModelUsed: req.Model,
		Attempts:  1,
	}
	fail := func(errType string, err error) (*ChatResult, error) {
		result.Success = false
		result.ErrorType = errType
		result.ErrorMessage = err.Error()
		result.TotalTime = time.Since(start)
		return result, err
	}

	if c.Respond != nil {
		content, err := c.Respond(ctx, req)
		if err != nil {
			return fail("mock_failure", err)
		}
		return c.finish(result, req, content, start), nil
	}

	if c.ShouldFail {
		return fail("mock_failure", fmt.Errorf("mock client configured to fail"))
	}
	if c.FailAfter > 0 && int(count) > c.FailAfter {
		return fail("mock_failure", fmt.Errorf("mock client failed after %d requests", c.FailAfter))
	}

	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
		return fail("context_cancelled", ctx.Err())
	}

	content := c.ResponseText
	if req.ResponseFormat != nil && len(c.ResponseJSON) > 0 {
		content = string(c.ResponseJSON)
	}
	return c.finish(result, req, content, start), nil
}

func (c *MockClient) finish(result *ChatResult, req *ChatRequest, content string, start time.Time) *ChatResult {
	result.Success = true
	result.Content = content
	result.ExecutionTime = time.Since(start)
	result.TotalTime = result.ExecutionTime

	promptTokens := 0
	for _, m := range req.Messages {
		promptTokens += len(m.Content) / 4 // Rough estimate
	}
	result.PromptTokens = promptTokens
	result.CompletionTokens = len(content) / 4
	result.TotalTokens = result.PromptTokens + result.CompletionTokens

	if req.ResponseFormat != nil && content != "" {
		if parsed, err := ParseStructuredJSON(content); err == nil {
			result.ParsedJSON = parsed
		} else {
			result.Success = false
			result.ErrorType = "json_parse"
			result.ErrorMessage = err.Error()
		}
	}
	return result
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// MaxInFlight returns the highest number of concurrent requests observed.
func (c *MockClient) MaxInFlight() int64 {
	return c.maxInFlight.Load()
}

// Reset resets the request counters.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.maxInFlight.Store(0)
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
var _ RateLimited = (*MockClient)(nil)

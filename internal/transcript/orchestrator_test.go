package transcript

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/script"
)

// chunkText pulls the chunk text back out of the rendered user prompt.
func chunkText(req *providers.ChatRequest) string {
	return strings.TrimPrefix(req.Messages[len(req.Messages)-1].Content, "Here is the text: ")
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func lineJSON(character, text string) string {
	return fmt.Sprintf(`{"lines":[{"lineId":"L1","order":1,"character":%q,"text":%q}]}`, character, text)
}

func chunksOf(texts ...string) []script.Chunk {
	chunks := make([]script.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = script.Chunk{Index: i, Page: i + 1, Text: text}
	}
	return chunks
}

func TestOrchestrator_Order(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		if err := sleepCtx(ctx, time.Duration(rand.IntN(20))*time.Millisecond); err != nil {
			return "", err
		}
		return lineJSON("SPEAKER", chunkText(req)), nil
	}

	var texts []string
	for i := 0; i < 12; i++ {
		texts = append(texts, fmt.Sprintf("chunk %02d", i))
	}

	orch := NewOrchestrator(OrchestratorConfig{Client: mock})
	results := orch.ExtractAll(context.Background(), chunksOf(texts...))

	if len(results) != len(texts) {
		t.Fatalf("got %d results, want %d", len(results), len(texts))
	}
	for i, r := range results {
		if !r.OK() {
			t.Fatalf("chunk %d failed: %v", i, r.Err)
		}
		if r.Index != i || len(r.Lines) != 1 || r.Lines[0].Text != texts[i] {
			t.Errorf("result %d out of order: %+v", i, r)
		}
	}

	lines := Merge(results)
	for i, l := range lines {
		if l.Text != texts[i] || l.Order != i+1 {
			t.Errorf("merged line %d = %+v", i, l)
		}
	}
}

func TestOrchestrator_BoundedConcurrency(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		if err := sleepCtx(ctx, 15*time.Millisecond); err != nil {
			return "", err
		}
		return `{"lines":[]}`, nil
	}

	orch := NewOrchestrator(OrchestratorConfig{Client: mock, MaxConcurrency: 2})
	results := orch.ExtractAll(context.Background(), chunksOf("a", "b", "c", "d", "e", "f"))

	for _, r := range results {
		if !r.OK() {
			t.Fatalf("chunk %d failed: %v", r.Index, r.Err)
		}
	}
	if got := mock.MaxInFlight(); got > 2 {
		t.Errorf("MaxInFlight = %d, want <= 2", got)
	}
	if got := mock.RequestCount(); got != 6 {
		t.Errorf("RequestCount = %d, want 6", got)
	}
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		switch text := chunkText(req); text {
		case "unreachable":
			return "", errors.New("connection refused")
		case "garbled":
			return "Sorry, I can't do that.", nil
		default:
			return lineJSON("A", text), nil
		}
	}

	orch := NewOrchestrator(OrchestratorConfig{Client: mock})
	results := orch.ExtractAll(context.Background(), chunksOf("one", "unreachable", "garbled", "four"))

	if results[1].OK() || results[1].Err.Kind != KindCall {
		t.Errorf("chunk 1: expected call error, got %+v", results[1].Err)
	}
	if results[2].OK() || results[2].Err.Kind != KindParse {
		t.Errorf("chunk 2: expected parse error, got %+v", results[2].Err)
	}

	lines := Merge(results)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Text != "one" || lines[1].Text != "four" || lines[1].LineID != "L2" {
		t.Errorf("unexpected lines: %+v", lines)
	}
}

func TestOrchestrator_StrictValidation(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 0
	mock.ResponseJSON = []byte(`{"lines":[{"character":"ASH","text":"Hi."}]}`)
	chunks := chunksOf("ASH:\nHi.")

	lenient := NewOrchestrator(OrchestratorConfig{Client: mock}).ExtractAll(context.Background(), chunks)
	if !lenient[0].OK() || len(lenient[0].Lines) != 1 {
		t.Errorf("lenient mode should accept partial lines: %+v", lenient[0])
	}

	strict := NewOrchestrator(OrchestratorConfig{Client: mock, StrictValidation: true}).ExtractAll(context.Background(), chunks)
	if strict[0].OK() || strict[0].Err.Kind != KindParse {
		t.Errorf("strict mode should reject missing fields: %+v", strict[0])
	}
}

func TestOrchestrator_ChunkTimeout(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		if chunkText(req) == "slow" {
			if err := sleepCtx(ctx, time.Second); err != nil {
				return "", err
			}
		}
		return lineJSON("A", chunkText(req)), nil
	}

	orch := NewOrchestrator(OrchestratorConfig{Client: mock, ChunkTimeout: 30 * time.Millisecond})
	results := orch.ExtractAll(context.Background(), chunksOf("fast", "slow"))

	if !results[0].OK() {
		t.Errorf("fast chunk failed: %v", results[0].Err)
	}
	if results[1].OK() || results[1].Err.Kind != KindTimeout {
		t.Errorf("slow chunk: expected timeout, got %+v", results[1].Err)
	}
}

func TestOrchestrator_EmptyChunk(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Latency = 0

	results := NewOrchestrator(OrchestratorConfig{Client: mock}).ExtractAll(context.Background(), chunksOf("  \n "))
	if !results[0].OK() || len(results[0].Lines) != 0 {
		t.Errorf("unexpected result: %+v", results[0])
	}
	if mock.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.RequestCount())
	}
}

func TestOrchestrator_RateLimited(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(ctx context.Context, req *providers.ChatRequest) (string, error) {
		return "", &providers.RateLimitError{Message: "slow down", RetryAfter: time.Minute, StatusCode: 429}
	}
	limiter := providers.NewRateLimiter(0)

	results := NewOrchestrator(OrchestratorConfig{Client: mock, Limiter: limiter}).ExtractAll(context.Background(), chunksOf("x"))

	if results[0].OK() || results[0].Err.Kind != KindCall {
		t.Errorf("expected call error, got %+v", results[0])
	}
	if !limiter.Status().PausedUntil.After(time.Now()) {
		t.Error("limiter should pause after a 429")
	}
}

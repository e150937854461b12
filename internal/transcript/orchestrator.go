package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/sides/internal/prompts/dialogue"
	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/script"
)

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	Client providers.LLMClient
	// Limiter paces requests to Client. Optional.
	Limiter *providers.RateLimiter
	// Prompts defaults to the embedded prompt pair.
	Prompts *dialogue.CompiledPrompts
	Request dialogue.RequestOptions

	// MaxConcurrency caps in-flight chunks. Zero or less means no cap.
	MaxConcurrency int
	// ChunkTimeout bounds each chunk's request. Zero disables it.
	ChunkTimeout time.Duration
	// StrictValidation rejects responses that do not match the schema.
	StrictValidation bool

	Logger *slog.Logger
}

// Orchestrator dispatches chunks to an extraction provider concurrently.
type Orchestrator struct {
	client         providers.LLMClient
	limiter        *providers.RateLimiter
	prompts        *dialogue.CompiledPrompts
	request        dialogue.RequestOptions
	maxConcurrency int
	chunkTimeout   time.Duration
	strict         bool
	logger         *slog.Logger
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	prompts := cfg.Prompts
	if prompts == nil {
		prompts, _ = dialogue.Prompts{}.Compile()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		client:         cfg.Client,
		limiter:        cfg.Limiter,
		prompts:        prompts,
		request:        cfg.Request,
		maxConcurrency: cfg.MaxConcurrency,
		chunkTimeout:   cfg.ChunkTimeout,
		strict:         cfg.StrictValidation,
		logger:         logger,
	}
}

// ExtractAll runs every chunk and returns one result per chunk, in chunk
// order regardless of completion order. It never fails as a whole; chunk
// failures are carried in each Result.
func (o *Orchestrator) ExtractAll(ctx context.Context, chunks []script.Chunk) []Result {
	results := make([]Result, len(chunks))

	var g errgroup.Group
	if o.maxConcurrency > 0 {
		g.SetLimit(o.maxConcurrency)
	}
	for i, c := range chunks {
		g.Go(func() error {
			results[i] = o.extractChunk(ctx, c)
			return nil
		})
	}
	g.Wait()

	return results
}

func (o *Orchestrator) extractChunk(ctx context.Context, c script.Chunk) Result {
	start := time.Now()
	res := Result{Index: c.Index, Page: c.Page, Part: c.Part}
	logger := o.logger.With("chunk", c.Index, "page", c.Page)

	fail := func(kind ErrorKind, err error) Result {
		res.Err = &ChunkError{Index: c.Index, Kind: kind, Err: err}
		res.Duration = time.Since(start)
		logger.Warn("chunk failed", "kind", kind, "error", err, "duration", res.Duration)
		return res
	}

	// Blank pages have nothing to extract.
	if strings.TrimSpace(c.Text) == "" {
		logger.Debug("skipping empty chunk")
		return res
	}

	if o.chunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.chunkTimeout)
		defer cancel()
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			// The limiter only fails when ctx would expire first.
			kind := KindTimeout
			if errors.Is(err, context.Canceled) {
				kind = KindCall
			}
			return fail(kind, fmt.Errorf("wait for rate limiter: %w", err))
		}
	}

	opts := o.request
	opts.RequestID = fmt.Sprintf("chunk-%d", c.Index)
	req, err := o.prompts.BuildRequest(c.Text, opts)
	if err != nil {
		return fail(KindCall, err)
	}

	result, err := o.client.Chat(ctx, req)
	if err != nil {
		if rl, ok := providers.IsRateLimit(err); ok && o.limiter != nil {
			o.limiter.Record429(rl.RetryAfter)
		}
		if errors.Is(err, providers.ErrNoContent) {
			return fail(KindParse, err)
		}
		return fail(contextKind(err), err)
	}

	if len(result.ParsedJSON) == 0 {
		msg := result.ErrorMessage
		if msg == "" {
			msg = "response was not JSON"
		}
		return fail(KindParse, fmt.Errorf("%w: %s", dialogue.ErrMalformed, msg))
	}
	if o.strict {
		if err := dialogue.Validate(result.ParsedJSON); err != nil {
			return fail(KindParse, err)
		}
	}
	lines, err := dialogue.ParseLines(result.ParsedJSON)
	if err != nil {
		return fail(KindParse, err)
	}

	res.Lines = lines
	res.Tokens = result.TotalTokens
	res.Duration = time.Since(start)
	logger.Debug("chunk extracted",
		"lines", len(lines),
		"tokens", result.TotalTokens,
		"model", result.ModelUsed,
		"duration", res.Duration)
	return res
}

// contextKind maps deadline errors to KindTimeout and everything else to
// KindCall.
func contextKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindCall
}

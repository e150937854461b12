package transcript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/sides/internal/pdftext"
	"github.com/jackzampolin/sides/internal/prompts/dialogue"
	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/script"
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Registry supplies the extraction providers and their rate limiters.
	Registry *providers.Registry
	// Provider is the default provider name.
	Provider string
	// PDF defaults to a pdftext.PDFExtractor.
	PDF pdftext.Extractor
	// MaxPages is passed to the default PDF extractor. Zero means no limit.
	MaxPages int

	Chunking      script.Policy
	MaxChunkChars int

	MaxConcurrency   int
	ChunkTimeout     time.Duration
	Deadline         time.Duration
	StrictValidation bool

	Model       string
	Temperature float64
	MaxTokens   int
	Prompts     dialogue.Prompts

	Logger *slog.Logger
}

// ExtractOptions overrides pipeline defaults for a single run. Zero values
// keep the pipeline's setting.
type ExtractOptions struct {
	Provider       string
	Chunking       script.Policy
	MaxConcurrency int
}

// Pipeline runs PDF documents through extraction and merging.
type Pipeline struct {
	cfg     PipelineConfig
	pdf     pdftext.Extractor
	prompts *dialogue.CompiledPrompts
	logger  *slog.Logger
}

// NewPipeline validates cfg and creates a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Registry == nil {
		return nil, errors.New("provider registry is required")
	}
	policy, err := script.ParsePolicy(string(cfg.Chunking))
	if err != nil {
		return nil, err
	}
	cfg.Chunking = policy
	if cfg.MaxChunkChars <= 0 {
		cfg.MaxChunkChars = script.DefaultMaxChunkChars
	}

	prompts, err := cfg.Prompts.Compile()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	extractor := cfg.PDF
	if extractor == nil {
		extractor = pdftext.New(pdftext.Config{MaxPages: cfg.MaxPages, Logger: logger})
	}

	return &Pipeline{
		cfg:     cfg,
		pdf:     extractor,
		prompts: prompts,
		logger:  logger,
	}, nil
}

// Provider returns the default provider name.
func (p *Pipeline) Provider() string {
	return p.cfg.Provider
}

// Extract runs a document through the pipeline with default options.
func (p *Pipeline) Extract(ctx context.Context, data []byte) (*Transcript, error) {
	return p.ExtractWith(ctx, data, ExtractOptions{})
}

// ExtractWith runs a document through the pipeline.
//
// Problems with the document itself are returned as *InputError before any
// chunk is dispatched. Chunk failures never fail the run; they show up in
// Transcript.Chunks.
func (p *Pipeline) ExtractWith(ctx context.Context, data []byte, opts ExtractOptions) (*Transcript, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	if len(data) == 0 {
		return nil, &InputError{Err: ErrNoDocument}
	}

	policy := p.cfg.Chunking
	if opts.Chunking != "" {
		var err error
		if policy, err = script.ParsePolicy(string(opts.Chunking)); err != nil {
			return nil, err
		}
	}

	providerName := p.cfg.Provider
	if opts.Provider != "" {
		providerName = opts.Provider
	}
	client, err := p.cfg.Registry.GetLLM(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoProvider, providerName)
	}

	doc, err := p.pdf.Extract(ctx, data)
	if err != nil {
		return nil, inputError(err)
	}
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &InputError{Err: ErrNoText}
	}

	var chunks []script.Chunk
	switch policy {
	case script.PolicySize:
		chunks = script.PlanDocument(doc.Text, p.cfg.MaxChunkChars)
	default:
		chunks = script.PlanPages(doc.PageTexts(), p.cfg.MaxChunkChars)
	}
	logger.Info("extracting dialogue",
		"provider", providerName,
		"pages", len(doc.Pages),
		"chunks", len(chunks),
		"chunking", policy)

	if p.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Deadline)
		defer cancel()
	}

	concurrency := p.cfg.MaxConcurrency
	if opts.MaxConcurrency > 0 {
		concurrency = opts.MaxConcurrency
	}
	orch := NewOrchestrator(OrchestratorConfig{
		Client:  client,
		Limiter: p.cfg.Registry.Limiter(providerName),
		Prompts: p.prompts,
		Request: dialogue.RequestOptions{
			Model:       p.cfg.Model,
			Temperature: p.cfg.Temperature,
			MaxTokens:   p.cfg.MaxTokens,
		},
		MaxConcurrency:   concurrency,
		ChunkTimeout:     p.cfg.ChunkTimeout,
		StrictValidation: p.cfg.StrictValidation,
		Logger:           logger,
	})
	results := orch.ExtractAll(ctx, chunks)

	t := &Transcript{
		ExtractedText: strings.TrimSpace(doc.Text),
		Lines:         Merge(results),
		Chunks:        Report(results),
		RunID:         runID,
		Duration:      time.Since(start),
	}
	t.DurationMs = t.Duration.Milliseconds()
	logger.Info("extraction complete",
		"lines", len(t.Lines),
		"chunks", len(t.Chunks),
		"failed_chunks", t.Failed(),
		"duration", t.Duration)
	return t, nil
}

// inputError maps PDF extraction failures onto InputError. Context errors
// pass through unchanged.
func inputError(err error) error {
	switch {
	case errors.Is(err, pdftext.ErrEmpty):
		return &InputError{Err: ErrNoDocument}
	case errors.Is(err, pdftext.ErrInvalid):
		return &InputError{Err: ErrInvalidPDF, Cause: err}
	case errors.Is(err, pdftext.ErrTooManyPages):
		return &InputError{Err: ErrTooManyPages, Cause: err}
	default:
		return err
	}
}

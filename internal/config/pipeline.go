package config

import (
	"log/slog"
	"time"

	"github.com/jackzampolin/sides/internal/prompts/dialogue"
	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/script"
	"github.com/jackzampolin/sides/internal/transcript"
)

// ToPipelineConfig converts the extraction settings into a pipeline config
// that draws providers from reg.
func (c *Config) ToPipelineConfig(reg *providers.Registry, logger *slog.Logger) transcript.PipelineConfig {
	x := c.Extraction
	return transcript.PipelineConfig{
		Registry:         reg,
		Provider:         c.Defaults.LLMProvider,
		MaxPages:         x.MaxPages,
		Chunking:         script.Policy(x.Chunking),
		MaxChunkChars:    x.MaxChunkChars,
		MaxConcurrency:   x.MaxConcurrency,
		ChunkTimeout:     seconds(x.ChunkTimeoutSeconds),
		Deadline:         seconds(x.DeadlineSeconds),
		StrictValidation: x.StrictValidation,
		Model:            x.Model,
		Temperature:      x.Temperature,
		MaxTokens:        x.MaxTokens,
		Prompts: dialogue.Prompts{
			System: x.SystemPrompt,
			User:   x.UserPrompt,
		},
		Logger: logger,
	}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sides/internal/api"
	"github.com/jackzampolin/sides/internal/home"
	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/script"
	"github.com/jackzampolin/sides/internal/transcript"
)

var (
	extractProvider    string
	extractChunking    string
	extractConcurrency int
	extractSave        bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract dialogue from a PDF without a server",
	Long: `Extract dialogue from a PDF script in-process.

Providers and extraction settings come from the config file, the same as
sides serve. Failed chunks are reported on stderr and the command exits
non-zero if any chunk failed.

Examples:
  sides extract script.pdf                      # YAML transcript
  sides extract script.pdf -o text              # CHARACTER: line
  sides extract script.pdf --chunking size      # Ignore page boundaries
  sides extract script.pdf --provider openrouter --concurrency 4
  sides extract script.pdf --save               # Keep a copy in ~/.sides/transcripts`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, logger, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read PDF: %w", err)
		}

		policy, err := script.ParsePolicy(extractChunking)
		if err != nil {
			return err
		}

		registry := providers.NewRegistry()
		registry.SetLogger(logger)
		registry.Reload(cfg.ToProviderRegistryConfig())

		pipeline, err := transcript.NewPipeline(cfg.ToPipelineConfig(registry, logger))
		if err != nil {
			return err
		}

		t, err := pipeline.ExtractWith(ctx, data, transcript.ExtractOptions{
			Provider:       extractProvider,
			Chunking:       policy,
			MaxConcurrency: extractConcurrency,
		})
		if err != nil {
			return err
		}

		if err := api.Output(t); err != nil {
			return err
		}
		if extractSave {
			path, err := saveTranscript(args[0], t)
			if err != nil {
				return err
			}
			logger.Info("saved transcript", "path", path)
		}
		if n := t.Failed(); n > 0 {
			for _, c := range t.Chunks {
				if c.Status == transcript.StatusFailed {
					fmt.Fprintf(os.Stderr, "chunk %d (page %d): %s: %s\n", c.Index, c.Page, c.Kind, c.Error)
				}
			}
			return fmt.Errorf("%d of %d chunks failed", n, len(t.Chunks))
		}
		return nil
	},
}

// saveTranscript writes t under the home transcripts directory in the
// current output format.
func saveTranscript(source string, t *transcript.Transcript) (string, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return "", err
	}
	if err := h.EnsureExists(); err != nil {
		return "", err
	}

	format := api.GetOutputFormat()
	ext := string(format)
	if format == api.OutputFormatText {
		ext = "txt"
	}
	path := h.TranscriptPath(source, t.RunID, ext)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create transcript file: %w", err)
	}
	if err := api.OutputTo(f, format, t); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

func init() {
	extractCmd.Flags().StringVar(&extractProvider, "provider", "", "Extraction provider (default: defaults.llm_provider)")
	extractCmd.Flags().StringVar(&extractChunking, "chunking", "", "Chunking policy: page or size (default: extraction.chunking)")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 0, "Max concurrent provider calls (default: extraction.max_concurrency)")

	extractCmd.Flags().BoolVar(&extractSave, "save", false, "Also save the transcript under <home>/transcripts")

	rootCmd.AddCommand(extractCmd)
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sides/internal/api"
	"github.com/jackzampolin/sides/internal/config"
	"github.com/jackzampolin/sides/internal/home"
	"github.com/jackzampolin/sides/version"
)

var (
	cfgFile      string
	homeDir      string
	logLevel     string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "sides",
	Short: "Dialogue extraction for PDF scripts",
	Long: `sides turns a PDF script into an ordered list of dialogue lines.

The pipeline:
  - Extracts the text layer page by page
  - Normalizes script formatting (page numbers, hyphenation, wrapped lines)
  - Sends each page to an LLM concurrently with a structured-output schema
  - Merges the results back into document order`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or <home>/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "sides home directory (default: ~/.sides)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn, error (default: log.level from config)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or text",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and builds the process logger. Logs go
// to stderr so command output stays parseable.
func loadConfig() (*config.Manager, *slog.Logger, error) {
	file := cfgFile
	if file == "" && homeDir != "" {
		h, err := home.New(homeDir)
		if err != nil {
			return nil, nil, err
		}
		if h.ConfigExists() {
			file = h.ConfigPath()
		}
	}

	mgr, err := config.NewManager(file)
	if err != nil {
		return nil, nil, err
	}

	level := mgr.Get().Log.Level
	if logLevel != "" {
		level = logLevel
	}
	lvl, err := config.ParseLogLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid --log-level: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	mgr.SetLogger(logger)
	return mgr, logger, nil
}

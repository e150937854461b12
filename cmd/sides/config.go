package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sides/internal/api"
	"github.com/jackzampolin/sides/internal/config"
	"github.com/jackzampolin/sides/internal/home"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file commands",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default config file",
	Long: `Write the default configuration to path (default: <home>/config.yaml).

API keys are written as ${OPENAI_API_KEY} style references and resolved
from the environment when the config is loaded.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		path := h.ConfigPath()
		if len(args) == 1 {
			path = args[0]
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema for the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.Schema()
		if err != nil {
			return err
		}
		_, err = fmt.Println(string(data))
		return err
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, _, err := loadConfig()
		if err != nil {
			return err
		}
		return outputConfig(mgr.Get())
	},
}

// outputConfig prints cfg with literal API keys masked. ${ENV} references
// are shown as written.
func outputConfig(cfg *config.Config) error {
	shown := *cfg
	shown.LLMProviders = make(map[string]config.LLMProviderCfg, len(cfg.LLMProviders))
	for name, p := range cfg.LLMProviders {
		if p.APIKey != "" && !strings.HasPrefix(p.APIKey, "${") {
			p.APIKey = "****"
		}
		shown.LLMProviders[name] = p
	}
	return api.Output(shown)
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/sides/internal/providers"
	"github.com/jackzampolin/sides/internal/script"
)

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
	logger    *slog.Logger
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		v:         viper.New(),
		callbacks: make([]func(*Config), 0),
		logger:    slog.Default(),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// SetLogger sets the logger used for reload errors.
func (cm *Manager) SetLogger(logger *slog.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	v := cm.v
	defaults := DefaultConfig()
	v.SetDefault("llm_providers", defaults.LLMProviders)
	v.SetDefault("defaults.llm_provider", defaults.Defaults.LLMProvider)
	v.SetDefault("extraction.chunking", defaults.Extraction.Chunking)
	v.SetDefault("extraction.max_chunk_chars", defaults.Extraction.MaxChunkChars)
	v.SetDefault("extraction.max_concurrency", defaults.Extraction.MaxConcurrency)
	v.SetDefault("extraction.chunk_timeout_seconds", defaults.Extraction.ChunkTimeoutSeconds)
	v.SetDefault("extraction.deadline_seconds", defaults.Extraction.DeadlineSeconds)
	v.SetDefault("extraction.strict_validation", defaults.Extraction.StrictValidation)
	v.SetDefault("extraction.temperature", defaults.Extraction.Temperature)
	v.SetDefault("extraction.max_tokens", defaults.Extraction.MaxTokens)
	v.SetDefault("extraction.max_pages", defaults.Extraction.MaxPages)
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.write_timeout_seconds", defaults.Server.WriteTimeoutSeconds)
	v.SetDefault("server.max_body_mb", defaults.Server.MaxBodyMB)
	v.SetDefault("log.level", defaults.Log.Level)

	// Environment variables with SIDES_ prefix, e.g. SIDES_SERVER_PORT
	v.SetEnvPrefix("SIDES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sides")
	}

	// Try to read config file (not required)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := cm.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ConfigFile returns the path of the loaded config file, if any.
func (cm *Manager) ConfigFile() string {
	return cm.v.ConfigFileUsed()
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration. An invalid edit is
// logged and the previous config stays in effect.
func (cm *Manager) WatchConfig() {
	cm.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			cm.mu.RLock()
			logger := cm.logger
			cm.mu.RUnlock()
			logger.Warn("ignoring invalid config change", "file", e.Name, "error", err)
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	cm.v.WatchConfig()
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	return envPattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	if _, err := script.ParsePolicy(c.Extraction.Chunking); err != nil {
		return fmt.Errorf("extraction.chunking: %w", err)
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	for name, p := range c.LLMProviders {
		if p.RateLimit < 0 {
			return fmt.Errorf("llm_providers.%s.rate_limit must not be negative", name)
		}
		if p.MaxRetries < 0 {
			return fmt.Errorf("llm_providers.%s.max_retries must not be negative", name)
		}
	}
	return nil
}

// ParseLogLevel maps a level name onto slog. Empty means info.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: unknown level %q", s)
	}
	return level, nil
}

// ToProviderRegistryConfig converts the config to a format suitable for providers.Registry.
// It resolves all ${ENV_VAR} references in API keys.
func (c *Config) ToProviderRegistryConfig() providers.RegistryConfig {
	cfg := providers.RegistryConfig{
		LLMProviders: make(map[string]providers.LLMProviderConfig),
	}

	for name, llm := range c.LLMProviders {
		cfg.LLMProviders[name] = providers.LLMProviderConfig{
			Type:       llm.Type,
			Model:      llm.Model,
			APIKey:     ResolveEnvVars(llm.APIKey),
			BaseURL:    llm.BaseURL,
			RateLimit:  llm.RateLimit,
			MaxRetries: llm.MaxRetries,
			Timeout:    seconds(llm.TimeoutSeconds),
			Enabled:    llm.Enabled,
		}
	}

	return cfg
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# sides configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export OPENAI_API_KEY=xxx OPENROUTER_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

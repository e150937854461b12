package config

// Config holds sides configuration.
// Read from ./config.yaml or ~/.sides/config.yaml unless --config is given.
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults" json:"defaults"`
	Extraction   ExtractionCfg             `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server" json:"server"`
	Log          LogCfg                    `mapstructure:"log" yaml:"log" json:"log"`
}

// LLMProviderCfg configures a structured-extraction provider.
type LLMProviderCfg struct {
	Type           string  `mapstructure:"type" yaml:"type" json:"type" jsonschema:"enum=openai,enum=openrouter"`
	Model          string  `mapstructure:"model" yaml:"model" json:"model,omitempty"`
	APIKey         string  `mapstructure:"api_key" yaml:"api_key" json:"api_key,omitempty" jsonschema:"description=API key; supports ${ENV_VAR} syntax"`
	BaseURL        string  `mapstructure:"base_url" yaml:"base_url,omitempty" json:"base_url,omitempty"`
	RateLimit      float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit,omitempty" jsonschema:"description=Requests per second; 0 means unlimited"`
	MaxRetries     int     `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries,omitempty"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds,omitempty"`
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// DefaultsCfg specifies default provider selections.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider" json:"llm_provider"`
}

// ExtractionCfg tunes the extraction pipeline.
type ExtractionCfg struct {
	Chunking            string  `mapstructure:"chunking" yaml:"chunking" json:"chunking" jsonschema:"enum=page,enum=size"`
	MaxChunkChars       int     `mapstructure:"max_chunk_chars" yaml:"max_chunk_chars" json:"max_chunk_chars"`
	MaxConcurrency      int     `mapstructure:"max_concurrency" yaml:"max_concurrency" json:"max_concurrency" jsonschema:"description=Chunks in flight at once; 0 means no cap"`
	ChunkTimeoutSeconds int     `mapstructure:"chunk_timeout_seconds" yaml:"chunk_timeout_seconds" json:"chunk_timeout_seconds"`
	DeadlineSeconds     int     `mapstructure:"deadline_seconds" yaml:"deadline_seconds" json:"deadline_seconds"`
	StrictValidation    bool    `mapstructure:"strict_validation" yaml:"strict_validation" json:"strict_validation"`
	Model               string  `mapstructure:"model" yaml:"model,omitempty" json:"model,omitempty"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens           int     `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	MaxPages            int     `mapstructure:"max_pages" yaml:"max_pages" json:"max_pages"`
	SystemPrompt        string  `mapstructure:"system_prompt" yaml:"system_prompt,omitempty" json:"system_prompt,omitempty"`
	UserPrompt          string  `mapstructure:"user_prompt" yaml:"user_prompt,omitempty" json:"user_prompt,omitempty" jsonschema:"description=text/template rendered with {{.Text}}"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host                string `mapstructure:"host" yaml:"host" json:"host"`
	Port                string `mapstructure:"port" yaml:"port" json:"port"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds" yaml:"write_timeout_seconds" json:"write_timeout_seconds"`
	MaxBodyMB           int    `mapstructure:"max_body_mb" yaml:"max_body_mb" json:"max_body_mb"`
}

// LogCfg configures logging.
type LogCfg struct {
	Level string `mapstructure:"level" yaml:"level" json:"level" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openai": {
				Type:           "openai",
				Model:          "gpt-4o-mini",
				APIKey:         "${OPENAI_API_KEY}",
				RateLimit:      5,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
			"openrouter": {
				Type:           "openrouter",
				Model:          "openai/gpt-4o-mini",
				APIKey:         "${OPENROUTER_API_KEY}",
				RateLimit:      5,
				TimeoutSeconds: 120,
				Enabled:        true,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openai",
		},
		Extraction: ExtractionCfg{
			Chunking:            "page",
			MaxChunkChars:       10000,
			MaxConcurrency:      8,
			ChunkTimeoutSeconds: 120,
			DeadlineSeconds:     600,
			MaxTokens:           4096,
			MaxPages:            500,
		},
		Server: ServerCfg{
			Host:                "127.0.0.1",
			Port:                "3000",
			WriteTimeoutSeconds: 660,
			MaxBodyMB:           50,
		},
		Log: LogCfg{
			Level: "info",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Registry holds the configured LLM clients and one rate limiter per client.
// It supports config-driven instantiation, hot-reload, and thread-safe access.
type Registry struct {
	mu         sync.RWMutex
	llmClients map[string]LLMClient
	limiters   map[string]*RateLimiter
	logger     *slog.Logger
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		llmClients: make(map[string]LLMClient),
		limiters:   make(map[string]*RateLimiter),
		logger:     slog.Default(),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setLocked(name, client)
	if r.logger != nil {
		r.logger.Info("registered LLM client", "name", name)
	}
}

// UnregisterLLM removes an LLM client by name.
func (r *Registry) UnregisterLLM(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.llmClients, name)
	delete(r.limiters, name)
	if r.logger != nil {
		r.logger.Info("unregistered LLM client", "name", name)
	}
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.llmClients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// Limiter returns the rate limiter for a registered client, or nil.
func (r *Registry) Limiter(name string) *RateLimiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// ListLLM returns all registered LLM client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.llmClients))
	for name := range r.llmClients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.llmClients[name]
	return ok
}

// RateLimits returns a status snapshot of every limiter.
func (r *Registry) RateLimits() map[string]RateLimiterStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]RateLimiterStatus, len(r.limiters))
	for name, l := range r.limiters {
		out[name] = l.Status()
	}
	return out
}

func (r *Registry) setLocked(name string, client LLMClient) {
	r.llmClients[name] = client
	var rps float64
	if rl, ok := client.(RateLimited); ok {
		rps = rl.RequestsPerSecond()
	}
	r.limiters[name] = NewRateLimiter(rps)
}

// RegistryConfig defines the providers to instantiate from config.
type RegistryConfig struct {
	// LLMProviders maps provider names to their config
	LLMProviders map[string]LLMProviderConfig
}

// LLMProviderConfig matches config.LLMProviderCfg with resolved API key.
type LLMProviderConfig struct {
	Type       string        // "openai", "openrouter"
	Model      string        // Model name
	APIKey     string        // Resolved API key
	BaseURL    string        // Optional endpoint override
	RateLimit  float64       // Requests per second
	MaxRetries int           // Extra attempts per request, 0 = none
	Timeout    time.Duration // Per-HTTP-request timeout, 0 = none
	Enabled    bool
}

// NewRegistryFromConfig creates a registry with providers based on configuration.
// Only enabled providers with valid API keys will be registered.
func NewRegistryFromConfig(cfg RegistryConfig) *Registry {
	r := NewRegistry()
	r.Reload(cfg)
	return r
}

// Reload updates the registry based on new configuration.
// Providers that are no longer configured will be unregistered.
// Providers with changed settings will be re-registered.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)

	for name, provCfg := range cfg.LLMProviders {
		if !provCfg.Enabled || provCfg.APIKey == "" {
			continue
		}

		existing, hasExisting := r.llmClients[name]
		if hasExisting && !needsLLMUpdate(existing, provCfg) {
			want[name] = true
			continue
		}

		client := createLLMClient(provCfg)
		if client == nil {
			if r.logger != nil {
				r.logger.Warn("unknown LLM provider type", "name", name, "type", provCfg.Type)
			}
			continue
		}
		want[name] = true
		r.setLocked(name, client)
		if r.logger != nil {
			if hasExisting {
				r.logger.Info("updated LLM client", "name", name, "type", provCfg.Type)
			} else {
				r.logger.Info("registered LLM client", "name", name, "type", provCfg.Type)
			}
		}
	}

	for name := range r.llmClients {
		if !want[name] {
			delete(r.llmClients, name)
			delete(r.limiters, name)
			if r.logger != nil {
				r.logger.Info("unregistered LLM client", "name", name)
			}
		}
	}
}

// createLLMClient creates an LLM client based on provider type.
func createLLMClient(cfg LLMProviderConfig) LLMClient {
	switch cfg.Type {
	case OpenAIName:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			RateLimit:    cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
			BaseURL:      cfg.BaseURL,
		})
	case OpenRouterName:
		return NewOpenRouterClient(OpenRouterConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPS:          cfg.RateLimit,
			MaxRetries:   cfg.MaxRetries,
			Timeout:      cfg.Timeout,
		})
	default:
		return nil
	}
}

// needsLLMUpdate checks if an LLM client needs to be recreated.
func needsLLMUpdate(client LLMClient, cfg LLMProviderConfig) bool {
	switch c := client.(type) {
	case *OpenAIClient:
		return cfg.Type != OpenAIName ||
			c.apiKey != cfg.APIKey ||
			c.defaultModel != modelOr(cfg.Model, OpenAIDefaultModel) ||
			c.rateLimit != cfg.RateLimit ||
			c.maxRetries != cfg.MaxRetries ||
			c.timeout != cfg.Timeout ||
			c.baseURL != cfg.BaseURL
	case *OpenRouterClient:
		return cfg.Type != OpenRouterName ||
			c.apiKey != cfg.APIKey ||
			c.defaultModel != modelOr(cfg.Model, OpenRouterDefaultModel) ||
			c.rps != cfg.RateLimit ||
			c.maxRetries != cfg.MaxRetries ||
			c.client.Timeout != cfg.Timeout ||
			c.baseURL != baseURLOr(cfg.BaseURL, OpenRouterBaseURL)
	default:
		return true
	}
}

func modelOr(model, fallback string) string {
	if model == "" {
		return fallback
	}
	return model
}

func baseURLOr(url, fallback string) string {
	if url == "" {
		return fallback
	}
	return url
}

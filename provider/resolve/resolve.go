// Package resolve turns a provider-agnostic Config into a concrete
// archway.Provider, so callers can select a backend by name (from a config
// file or environment variable) instead of importing every provider package
// directly.
package resolve

import (
	"fmt"

	"github.com/archway-run/archway"
	"github.com/archway-run/archway/provider/anthropic"
	"github.com/archway-run/archway/provider/gemini"
	"github.com/archway-run/archway/provider/ollama"
	"github.com/archway-run/archway/provider/openai"
)

// Config holds provider-agnostic configuration for creating a chat Provider.
type Config struct {
	Provider string // "anthropic", "gemini", "ollama", "openai", "groq", "deepseek", "together", "fireworks", "mistral", "openrouter"
	APIKey   string
	Model    string
	BaseURL  string // required for openai-compat backends beyond openai itself; auto-filled for known providers

	// Defaults applied to every request that doesn't set its own
	// GenerationParams. nil fields are left to the provider's own default.
	Temperature *float64
	TopP        *float64
	TopK        *int
	MaxTokens   *int
}

// EmbeddingConfig holds provider-agnostic configuration for creating an EmbeddingProvider.
type EmbeddingConfig struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Dimensions int
}

// Provider creates an archway.Provider from a provider-agnostic Config.
func Provider(cfg Config) (archway.Provider, error) {
	var p archway.Provider
	switch cfg.Provider {
	case "anthropic":
		p = anthropic.New(cfg.APIKey, cfg.Model)
	case "gemini":
		p = gemini.New(cfg.APIKey, cfg.Model)
	case "ollama":
		p = ollama.New(cfg.Model, ollama.WithBaseURL(orDefault(cfg.BaseURL, "http://localhost:11434")))
	case "openai", "groq", "deepseek", "together", "fireworks", "mistral", "openrouter":
		baseURL := orDefault(cfg.BaseURL, defaultBaseURL(cfg.Provider))
		p = openai.New(cfg.APIKey, cfg.Model, baseURL, openai.WithName(cfg.Provider))
	default:
		return nil, fmt.Errorf("resolve: unknown provider %q", cfg.Provider)
	}
	if params := cfg.defaultParams(); params != nil {
		p = withDefaultParams(p, params)
	}
	return p, nil
}

// EmbeddingProvider creates an archway.EmbeddingProvider from a provider-agnostic EmbeddingConfig.
func EmbeddingProvider(cfg EmbeddingConfig) (archway.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewEmbedding(cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	case "openai":
		baseURL := orDefault(cfg.BaseURL, defaultBaseURL("openai"))
		return openai.NewEmbedding(cfg.APIKey, cfg.Model, baseURL, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("resolve: embedding provider %q not supported", cfg.Provider)
	}
}

func (cfg Config) defaultParams() *archway.GenerationParams {
	if cfg.Temperature == nil && cfg.TopP == nil && cfg.TopK == nil && cfg.MaxTokens == nil {
		return nil
	}
	return &archway.GenerationParams{
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
		MaxTokens:   cfg.MaxTokens,
	}
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "deepseek":
		return "https://api.deepseek.com/v1"
	case "together":
		return "https://api.together.xyz/v1"
	case "fireworks":
		return "https://api.fireworks.ai/inference/v1"
	case "mistral":
		return "https://api.mistral.ai/v1"
	case "openrouter":
		return "https://openrouter.ai/api/v1"
	default:
		return ""
	}
}

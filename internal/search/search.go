// Package search answers free-text queries through an LLM with live web
// access (Perplexity or OpenAI search models).
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
)

const (
	ProviderPerplexity = "perplexity"
	ProviderOpenAI     = "openai"

	DefaultPerplexityModel = "sonar"
	DefaultOpenAIModel     = "gpt-4o-mini-search-preview"
)

// Provider runs one search.
type Provider interface {
	Search(ctx context.Context, query string) (string, error)
	Model() string
}

// APIError is an upstream failure with the raw response for the caller.
type APIError struct {
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

// New builds the provider named by cfg.Provider. An empty model picks the
// provider default.
func New(cfg tool.SearchConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderPerplexity:
		model := cfg.Model
		if model == "" {
			model = DefaultPerplexityModel
		}
		return NewPerplexity(cfg.APIKey, model, cfg.Citations), nil
	case ProviderOpenAI:
		model := cfg.Model
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAI(cfg.APIKey, model, ""), nil
	default:
		return nil, fmt.Errorf("unknown search provider %q", cfg.Provider)
	}
}

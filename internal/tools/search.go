package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/search"
)

// SearchInternetTool answers queries through a search-capable model.
type SearchInternetTool struct {
	provider   search.Provider
	configured bool
}

// NewSearchInternetTool wraps provider. configured is false when no API key
// was supplied; the tool then refuses every call.
func NewSearchInternetTool(provider search.Provider, configured bool) *SearchInternetTool {
	return &SearchInternetTool{provider: provider, configured: configured}
}

func (t *SearchInternetTool) Name() string { return string(ToolSearchInternet) }
func (t *SearchInternetTool) Description() string {
	return "Search the internet for current information using Perplexity AI or OpenAI search models."
}
func (t *SearchInternetTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"query": {"type": "string", "description": "Search query text"}
		},
		"required": ["query"],
		"additionalProperties": false
	}`)
}

func (t *SearchInternetTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if !t.configured || t.provider == nil {
		return failure("API key not configured")
	}
	query := stringParam(params, "query")
	if query == "" {
		return failure("query is required")
	}

	content, err := t.provider.Search(ctx, query)
	if err != nil {
		var apiErr *search.APIError
		if errors.As(err, &apiErr) {
			return failure(apiErr.Message, result{"details": apiErr.Details})
		}
		slog.Error("search_internet failed", "err", err)
		return failure("Error: " + err.Error())
	}
	return success(result{"result": content, "model_used": t.provider.Model()})
}

package tool

// SearchConfig configures the search_internet tool.
type SearchConfig struct {
	Provider  string `json:"provider"` // "perplexity" | "openai"
	APIKey    string `json:"apiKey"`
	Model     string `json:"model,omitempty"`
	Citations bool   `json:"citations"`
}

func DefaultSearchConfig() SearchConfig {
	return SearchConfig{Provider: "perplexity", Citations: true}
}

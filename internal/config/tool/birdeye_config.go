package tool

// BirdeyeConfig configures the Birdeye data API.
type BirdeyeConfig struct {
	APIKey string `json:"apiKey"`
	// Chain is sent as the x-chain header unless a call overrides it.
	Chain string `json:"chain"`
	// RequestsPerSecond throttles outbound calls; 0 disables throttling.
	RequestsPerSecond float64 `json:"requestsPerSecond"`
}

func DefaultBirdeyeConfig() BirdeyeConfig {
	return BirdeyeConfig{Chain: "solana"}
}

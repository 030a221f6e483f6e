package tool

// VybeConfig configures the Vybe Network (AlphaVybe) API.
type VybeConfig struct {
	APIKey          string `json:"apiKey"`
	CacheTTLSeconds int    `json:"cacheTtlSeconds"`
}

func DefaultVybeConfig() VybeConfig {
	return VybeConfig{CacheTTLSeconds: 3600}
}

package tool

// ToolsConfig groups all tool-level settings. Several tools share one
// provider section; e.g. birdeye, solana_price and technical_analysis all
// read Birdeye.
type ToolsConfig struct {
	Birdeye  BirdeyeConfig `json:"birdeye"`
	Vybe     VybeConfig    `json:"vybe"`
	Jupiter  JupiterConfig `json:"jupiter"`
	DFlow    DFlowConfig   `json:"dflow"`
	Privy    PrivyConfig   `json:"privy"`
	Search   SearchConfig  `json:"search"`
	Disabled []string      `json:"disabled"`
}

func DefaultToolConfigs() ToolsConfig {
	return ToolsConfig{
		Birdeye:  DefaultBirdeyeConfig(),
		Vybe:     DefaultVybeConfig(),
		Jupiter:  DefaultJupiterConfig(),
		DFlow:    DefaultDFlowConfig(),
		Privy:    PrivyConfig{},
		Search:   DefaultSearchConfig(),
		Disabled: []string{},
	}
}

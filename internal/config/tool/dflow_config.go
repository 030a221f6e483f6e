package tool

// DFlowConfig configures DFlow swaps and prediction-market trading.
type DFlowConfig struct {
	PlatformFeeBps   int    `json:"platformFeeBps"`
	PlatformFeeScale int    `json:"platformFeeScale"`
	FeeAccount       string `json:"feeAccount,omitempty"`
	ReferralAccount  string `json:"referralAccount,omitempty"`

	// Prediction-market quality filter.
	MinVolumeUSD    float64 `json:"minVolumeUsd"`
	MinLiquidityUSD float64 `json:"minLiquidityUsd"`
	IncludeRisky    bool    `json:"includeRisky"`
}

func DefaultDFlowConfig() DFlowConfig {
	return DFlowConfig{
		MinVolumeUSD:    1000,
		MinLiquidityUSD: 500,
	}
}

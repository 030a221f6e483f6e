package tool

// JupiterConfig configures the Jupiter Ultra and Trigger APIs.
type JupiterConfig struct {
	APIKey          string `json:"apiKey"`
	ReferralAccount string `json:"referralAccount,omitempty"`
	ReferralFee     int    `json:"referralFee,omitempty"` // bps, 50-255
}

func DefaultJupiterConfig() JupiterConfig {
	return JupiterConfig{}
}

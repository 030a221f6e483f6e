// Package config defines the configuration schema for sakit.
//
// JSON keys use camelCase. Secrets may be left empty in config.json and
// supplied through credentials.toml or the environment instead (see
// credentials.go).
package config

import (
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
)

// ---- Solana ----------------------------------------------------------------

// SolanaConfig configures the RPC endpoint and the local signing keys used
// by the non-Privy trading tools.
type SolanaConfig struct {
	RPCURL          string `json:"rpcUrl"`
	WSURL           string `json:"wsUrl,omitempty"`
	PrivateKey      string `json:"privateKey"`
	PayerPrivateKey string `json:"payerPrivateKey,omitempty"`
	Commitment      string `json:"commitment"`
	ConfirmTimeout  int    `json:"confirmTimeoutSeconds"`
	MaxSendAttempts int    `json:"maxSendAttempts"`
}

func defaultSolanaConfig() SolanaConfig {
	return SolanaConfig{
		Commitment:      "confirmed",
		ConfirmTimeout:  60,
		MaxSendAttempts: 3,
	}
}

// ---- Logging ---------------------------------------------------------------

// LogConfig controls the default slog handler installed by the CLI.
type LogConfig struct {
	Level  string `json:"level"`  // debug | info | warn | error
	Format string `json:"format"` // text | json
}

func defaultLogConfig() LogConfig {
	return LogConfig{Level: "warn", Format: "text"}
}

// ---- Root config -----------------------------------------------------------

// Config is the root configuration object, loaded from ~/.sakit/config.json.
type Config struct {
	Solana SolanaConfig     `json:"solana"`
	Tools  tool.ToolsConfig `json:"tools"`
	Log    LogConfig        `json:"log"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Solana: defaultSolanaConfig(),
		Tools:  tool.DefaultToolConfigs(),
		Log:    defaultLogConfig(),
	}
}

// ToolEnabled reports whether name is absent from tools.disabled.
func (c *Config) ToolEnabled(name string) bool {
	for _, d := range c.Tools.Disabled {
		if d == name {
			return false
		}
	}
	return true
}

// CronStorePath returns the location of the scheduled-job store.
func (c *Config) CronStorePath() string {
	return DataDir() + "/cron/jobs.json"
}

package tools

import (
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/birdeye"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/dflow"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/search"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/vybe"
)

// Clients are the API clients the built-in tools share. Relay is nil when
// no RPC endpoint is configured; Search is nil when the provider name is
// unknown.
type Clients struct {
	Birdeye    *birdeye.Client
	Vybe       *vybe.Client
	Ultra      *jupiter.Ultra
	Trigger    *jupiter.Trigger
	Swap       *dflow.Swap
	Prediction *dflow.Prediction
	Relay      *solana.Relay
	Search     search.Provider
	Privy      *PrivyWallets
}

// Builtin returns every built-in tool wired to c.
func Builtin(cfg *config.Config, c Clients) []Tool {
	keys := NewLocalKeys(cfg.Solana)
	t := cfg.Tools

	return []Tool{
		NewBirdeyeTool(c.Birdeye),
		NewSolanaPriceTool(c.Birdeye),
		NewTechnicalAnalysisTool(c.Birdeye),

		NewVybeTool(c.Vybe),
		NewSolanaBalanceTool(c.Vybe),
		NewPrivyBalanceTool(c.Vybe, c.Privy),

		NewJupiterHoldingsTool(c.Ultra),
		NewJupiterShieldTool(c.Ultra),
		NewJupiterTokenSearchTool(c.Ultra),
		NewSolanaUltraTool(c.Ultra, c.Relay, keys, t.Jupiter),
		NewPrivyUltraTool(c.Ultra, c.Privy, keys, t.Jupiter),
		NewSolanaUltraQuoteTool(c.Ultra, keys, t.Jupiter),
		NewPrivyUltraQuoteTool(c.Ultra, c.Privy, keys, t.Jupiter),
		NewJupiterTriggerTool(c.Trigger, c.Relay, keys, t.Jupiter),
		NewPrivyTriggerTool(c.Trigger, c.Privy, keys, t.Jupiter),

		NewSolanaDFlowSwapTool(c.Swap, c.Relay, keys, t.DFlow),
		NewPrivyDFlowSwapTool(c.Swap, c.Relay, c.Privy, keys, t.DFlow),
		NewDFlowPredictionTool(c.Prediction, c.Relay, keys, t.DFlow),
		NewPrivyDFlowPredictionTool(c.Prediction, c.Relay, c.Privy, keys, t.DFlow),

		NewPrivyCreateUserTool(c.Privy),
		NewPrivyCreateWalletTool(c.Privy, t.Privy),
		NewPrivyUserByTelegramTool(c.Privy),
		NewPrivyWalletAddressTool(c.Privy),

		NewSearchInternetTool(c.Search, t.Search.APIKey != ""),
		NewRugcheckTool(),
		NewTokenMathTool(),
	}
}

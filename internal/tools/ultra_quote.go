package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
)

// quote requests the same order the swap tools would and reports it
// without signing anything.
func (s ultraSwap) quote(ctx context.Context, a swapArgs, taker, execTool string) (string, error) {
	payer, err := s.keys.Payer()
	if err != nil {
		return failureErr(err)
	}
	order, err := s.order(ctx, a, taker, payer)
	if err != nil {
		slog.Error("ultra quote failed", "taker", taker, "err", err)
		return failureErr(err)
	}
	return success(quoteFields(order, execTool))
}

func quoteFields(o *jupiter.Order, execTool string) result {
	impact := ""
	if o.PriceImpact != nil {
		impact = fmt.Sprintf("%.2f%%", *o.PriceImpact)
	}
	return result{
		"input_mint":       o.InputMint,
		"output_mint":      o.OutputMint,
		"in_amount":        o.InAmount,
		"out_amount":       o.OutAmount,
		"in_usd_value":     usdOrNil(o.InUSDValue),
		"out_usd_value":    usdOrNil(o.OutUSDValue),
		"slippage_bps":     o.SlippageBps,
		"price_impact_pct": impact,
		"swap_type":        o.SwapType,
		"gasless":          o.Gasless,
		"message":          "Preview only - no transaction executed. Call " + execTool + " to execute the swap.",
	}
}

func usdOrNil(v float64) any {
	if v == 0 {
		return nil
	}
	return fmt.Sprintf("$%.2f", v)
}

// SolanaUltraQuoteTool previews an Ultra swap for the local wallet.
type SolanaUltraQuoteTool struct{ ultraSwap }

func NewSolanaUltraQuoteTool(u *jupiter.Ultra, keys LocalKeys, cfg tool.JupiterConfig) *SolanaUltraQuoteTool {
	return &SolanaUltraQuoteTool{ultraSwap{ultra: u, keys: keys, cfg: cfg}}
}

func (t *SolanaUltraQuoteTool) Name() string { return string(ToolSolanaUltraQuote) }
func (t *SolanaUltraQuoteTool) Description() string {
	return "Get a quote for swapping tokens using Jupiter Ultra API. " +
		"Shows slippage, price impact, and amounts before executing the swap."
}
func (t *SolanaUltraQuoteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {` + ultraSwapParams + `
		},
		"required": ["input_mint", "output_mint", "amount"],
		"additionalProperties": false
	}`)
}

func (t *SolanaUltraQuoteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	wallet, err := t.keys.Wallet()
	if err != nil {
		return failureErr(err)
	}
	a, msg := parseSwapArgs(params)
	if msg != "" {
		return failure(msg)
	}
	return t.quote(ctx, a, wallet.PublicKey().String(), string(ToolSolanaUltra))
}

// PrivyUltraQuoteTool previews an Ultra swap for a Privy user's wallet.
type PrivyUltraQuoteTool struct {
	ultraSwap
	wallets *PrivyWallets
}

func NewPrivyUltraQuoteTool(u *jupiter.Ultra, w *PrivyWallets, keys LocalKeys, cfg tool.JupiterConfig) *PrivyUltraQuoteTool {
	return &PrivyUltraQuoteTool{ultraSwap: ultraSwap{ultra: u, keys: keys, cfg: cfg}, wallets: w}
}

func (t *PrivyUltraQuoteTool) Name() string { return string(ToolPrivyUltraQuote) }
func (t *PrivyUltraQuoteTool) Description() string {
	return "Get a quote for swapping tokens using Jupiter Ultra API via a Privy delegated wallet. " +
		"Shows slippage, price impact, and amounts before executing the swap."
}
func (t *PrivyUltraQuoteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {
				"type": "string",
				"description": "Privy user id (did) whose delegated wallet would perform the swap."
			},` + ultraSwapParams + `
		},
		"required": ["user_id", "input_mint", "output_mint", "amount"],
		"additionalProperties": false
	}`)
}

func (t *PrivyUltraQuoteTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID := stringParam(params, "user_id")
	if userID == "" {
		return failureErr(errUserID)
	}
	a, msg := parseSwapArgs(params)
	if msg != "" {
		return failure(msg)
	}
	taker, err := t.wallets.Taker(ctx, userID)
	if err != nil {
		return failureErr(err)
	}
	return t.quote(ctx, a, taker, string(ToolPrivyUltra))
}

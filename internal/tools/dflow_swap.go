package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/dflow"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

const dflowSwapParams = `
			"input_mint": {
				"type": "string",
				"description": "Token mint address to sell/swap from. Use 'So11111111111111111111111111111111111111112' for native SOL."
			},
			"output_mint": {
				"type": "string",
				"description": "Token mint address to buy/swap to. Use 'So11111111111111111111111111111111111111112' for native SOL."
			},
			"amount": {
				"type": "integer",
				"description": "Amount to swap in the smallest unit (lamports for SOL, base units for tokens). Example: 1000000000 for 1 SOL."
			},
			"slippage_bps": {
				"type": "integer",
				"description": "Maximum slippage tolerance in basis points (100 = 1%). Default is auto.",
				"default": 0
			}`

// dflowSwap is the order-sign-send path shared by both DFlow swap tools.
// The payer, when configured, sponsors fees and signs first. The user
// signer is resolved only after the arguments validate.
type dflowSwap struct {
	swap  *dflow.Swap
	relay *solana.Relay
	keys  LocalKeys
	cfg   tool.DFlowConfig
}

func (s dflowSwap) run(ctx context.Context, params map[string]any, resolve func(context.Context) (solana.Signer, error)) (string, error) {
	if s.relay == nil {
		return failureErr(errRPCURL)
	}
	a, msg := parseSwapArgs(params)
	if msg != "" {
		return failure(msg)
	}
	payer, err := s.keys.Payer()
	if err != nil {
		return failureErr(err)
	}
	user, err := resolve(ctx)
	if err != nil {
		return failureErr(err)
	}
	slippage, _ := intParam(params, "slippage_bps")

	req := dflow.OrderRequest{
		InputMint:       a.inputMint,
		OutputMint:      a.outputMint,
		Amount:          a.amount,
		UserPublicKey:   user.PublicKey().String(),
		SlippageBps:     int(slippage),
		PlatformFeeBps:  s.cfg.PlatformFeeBps,
		PlatformFeeMode: "outputMint",
		FeeAccount:      s.cfg.FeeAccount,
		ReferralAccount: s.cfg.ReferralAccount,
		Sponsor:         payerAddress(payer),
	}
	order, err := s.swap.Order(ctx, req)
	if err != nil {
		slog.Error("dflow swap: order failed", "err", err)
		return failureErr(err)
	}
	if order.Transaction == "" {
		return failure("No transaction returned from DFlow.")
	}

	sig, err := s.relay.SignAndSend(ctx, order.Transaction, solana.Optional(payer), user)
	if err != nil {
		slog.Error("dflow swap: send failed", "err", err)
		return failure("Failed to send transaction to Solana.", result{"details": err.Error()})
	}
	return success(result{
		"signature":         sig,
		"input_amount":      order.InAmount,
		"output_amount":     order.OutAmount,
		"min_output_amount": order.MinOut(),
		"input_mint":        order.InputMint,
		"output_mint":       order.OutputMint,
		"price_impact":      order.PriceImpactPct,
		"platform_fee":      order.PlatformFee,
		"execution_mode":    order.ExecutionMode,
		"message":           "Swap successful! Signature: " + sig,
	})
}

// ---------------------------------------------------------------------------
// SolanaDFlowSwapTool
// ---------------------------------------------------------------------------

type SolanaDFlowSwapTool struct {
	dflowSwap
}

func NewSolanaDFlowSwapTool(s *dflow.Swap, relay *solana.Relay, keys LocalKeys, cfg tool.DFlowConfig) *SolanaDFlowSwapTool {
	return &SolanaDFlowSwapTool{dflowSwap{swap: s, relay: relay, keys: keys, cfg: cfg}}
}

func (t *SolanaDFlowSwapTool) Name() string { return string(ToolSolanaDFlowSwap) }
func (t *SolanaDFlowSwapTool) Description() string {
	return "Swap tokens on Solana using DFlow's fast order API with the configured wallet. Supports sponsored (gasless) swaps."
}
func (t *SolanaDFlowSwapTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {` + dflowSwapParams + `
		},
		"required": ["input_mint", "output_mint", "amount"],
		"additionalProperties": false
	}`)
}

func (t *SolanaDFlowSwapTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	wallet, err := t.keys.Wallet()
	if err != nil {
		return failureErr(err)
	}
	return t.run(ctx, params, func(context.Context) (solana.Signer, error) { return wallet, nil })
}

// ---------------------------------------------------------------------------
// PrivyDFlowSwapTool
// ---------------------------------------------------------------------------

type PrivyDFlowSwapTool struct {
	dflowSwap
	wallets *PrivyWallets
}

func NewPrivyDFlowSwapTool(s *dflow.Swap, relay *solana.Relay, w *PrivyWallets, keys LocalKeys, cfg tool.DFlowConfig) *PrivyDFlowSwapTool {
	return &PrivyDFlowSwapTool{dflowSwap: dflowSwap{swap: s, relay: relay, keys: keys, cfg: cfg}, wallets: w}
}

func (t *PrivyDFlowSwapTool) Name() string { return string(ToolPrivyDFlowSwap) }
func (t *PrivyDFlowSwapTool) Description() string {
	return "Swap tokens on Solana using DFlow's fast order API with a Privy delegated embedded wallet. Supports sponsored (gasless) swaps."
}
func (t *PrivyDFlowSwapTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {
				"type": "string",
				"description": "Privy user id (did) whose delegated wallet performs the swap."
			},` + dflowSwapParams + `
		},
		"required": ["user_id", "input_mint", "output_mint", "amount"],
		"additionalProperties": false
	}`)
}

func (t *PrivyDFlowSwapTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID := stringParam(params, "user_id")
	if userID == "" {
		return failureErr(errUserID)
	}
	return t.run(ctx, params, func(ctx context.Context) (solana.Signer, error) {
		return t.wallets.Signer(ctx, userID)
	})
}

package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

const errUltraRPC = "rpc_url must be configured for Ultra swaps. Jupiter's execute endpoint has reliability issues."

const ultraSwapParams = `
			"input_mint": {
				"type": "string",
				"description": "The mint address of the token to swap from."
			},
			"output_mint": {
				"type": "string",
				"description": "The mint address of the token to receive."
			},
			"amount": {
				"type": "integer",
				"description": "The amount of input token to swap in base units (e.g. lamports for SOL)."
			}`

// ultraSwap holds what both Ultra tools need to request an order.
type ultraSwap struct {
	ultra *jupiter.Ultra
	keys  LocalKeys
	cfg   tool.JupiterConfig
}

type swapArgs struct {
	inputMint, outputMint string
	amount                uint64
}

func parseSwapArgs(params map[string]any) (swapArgs, string) {
	a := swapArgs{
		inputMint:  stringParam(params, "input_mint"),
		outputMint: stringParam(params, "output_mint"),
	}
	if a.inputMint == "" || a.outputMint == "" {
		return a, "input_mint and output_mint are required"
	}
	n, ok := intParam(params, "amount")
	if !ok || n <= 0 {
		return a, "amount must be a positive integer"
	}
	a.amount = uint64(n)
	return a, ""
}

// order requests an Ultra order for taker. A configured payer makes the
// swap gasless and reclaims rent to the taker.
func (s ultraSwap) order(ctx context.Context, a swapArgs, taker string, payer *solana.Keypair) (*jupiter.Order, error) {
	req := jupiter.OrderRequest{
		InputMint:       a.inputMint,
		OutputMint:      a.outputMint,
		Amount:          a.amount,
		Taker:           taker,
		ReferralAccount: s.cfg.ReferralAccount,
		ReferralFee:     s.cfg.ReferralFee,
	}
	if payer != nil {
		req.Payer = payer.PublicKey().String()
		req.CloseAuthority = taker
	}
	return s.ultra.Order(ctx, req)
}

// ---------------------------------------------------------------------------
// SolanaUltraTool
// ---------------------------------------------------------------------------

// SolanaUltraTool swaps with the local keypair and lands the transaction
// through the configured RPC.
type SolanaUltraTool struct {
	ultraSwap
	relay *solana.Relay
}

func NewSolanaUltraTool(u *jupiter.Ultra, relay *solana.Relay, keys LocalKeys, cfg tool.JupiterConfig) *SolanaUltraTool {
	return &SolanaUltraTool{ultraSwap: ultraSwap{ultra: u, keys: keys, cfg: cfg}, relay: relay}
}

func (t *SolanaUltraTool) Name() string { return string(ToolSolanaUltra) }
func (t *SolanaUltraTool) Description() string {
	return "Swap tokens using Jupiter Ultra API with the configured Solana wallet. " +
		"Handles slippage, priority fees and transaction landing automatically. Supports gasless swaps."
}
func (t *SolanaUltraTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {` + ultraSwapParams + `
		},
		"required": ["input_mint", "output_mint", "amount"],
		"additionalProperties": false
	}`)
}

func (t *SolanaUltraTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	wallet, err := t.keys.Wallet()
	if err != nil {
		return failureErr(err)
	}
	if t.relay == nil {
		return failure(errUltraRPC)
	}
	a, msg := parseSwapArgs(params)
	if msg != "" {
		return failure(msg)
	}
	payer, err := t.keys.Payer()
	if err != nil {
		return failureErr(err)
	}

	order, err := t.order(ctx, a, wallet.PublicKey().String(), payer)
	if err != nil {
		slog.Error("solana_ultra: order failed", "err", err)
		return failureErr(err)
	}
	if order.Transaction == "" {
		return failure("No transaction returned from Jupiter Ultra.")
	}

	sig, err := t.relay.SignAndSend(ctx, order.Transaction, solana.Optional(payer), wallet)
	if err != nil {
		slog.Error("solana_ultra: send failed", "request", order.RequestID, "err", err)
		return failureErr(err)
	}
	return success(result{"signature": sig, "swap_type": order.SwapType, "gasless": order.Gasless})
}

// ---------------------------------------------------------------------------
// PrivyUltraTool
// ---------------------------------------------------------------------------

// PrivyUltraTool swaps from a Privy user's delegated wallet. Jupiter's
// /execute endpoint lands the transaction.
type PrivyUltraTool struct {
	ultraSwap
	wallets *PrivyWallets
}

func NewPrivyUltraTool(u *jupiter.Ultra, w *PrivyWallets, keys LocalKeys, cfg tool.JupiterConfig) *PrivyUltraTool {
	return &PrivyUltraTool{ultraSwap: ultraSwap{ultra: u, keys: keys, cfg: cfg}, wallets: w}
}

func (t *PrivyUltraTool) Name() string { return string(ToolPrivyUltra) }
func (t *PrivyUltraTool) Description() string {
	return "Swap tokens using Jupiter Ultra API with a Privy delegated embedded wallet. Supports gasless swaps."
}
func (t *PrivyUltraTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {
				"type": "string",
				"description": "Privy user id (did) whose delegated wallet performs the swap."
			},` + ultraSwapParams + `
		},
		"required": ["user_id", "input_mint", "output_mint", "amount"],
		"additionalProperties": false
	}`)
}

func (t *PrivyUltraTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID := stringParam(params, "user_id")
	if userID == "" {
		return failureErr(errUserID)
	}
	a, msg := parseSwapArgs(params)
	if msg != "" {
		return failure(msg)
	}
	payer, err := t.keys.Payer()
	if err != nil {
		return failureErr(err)
	}
	signer, err := t.wallets.Signer(ctx, userID)
	if err != nil {
		return failureErr(err)
	}

	order, err := t.order(ctx, a, signer.PublicKey().String(), payer)
	if err != nil {
		slog.Error("privy_ultra: order failed", "err", err)
		return failureErr(err)
	}
	if order.Transaction == "" {
		return failure("No transaction returned from Jupiter Ultra.")
	}

	signed, err := solana.SignEncoded(ctx, order.Transaction, solana.Optional(payer), signer)
	if err != nil {
		slog.Error("privy_ultra: signing failed", "err", err)
		return failureErr(errPrivySign, result{"details": err.Error()})
	}

	res, err := t.ultra.Execute(ctx, signed, order.RequestID)
	if err != nil {
		return failureErr(err)
	}
	if !res.Succeeded() {
		msg := res.Error
		if msg == "" {
			msg = "Swap failed"
		}
		return failure(msg, result{"code": res.Code, "signature": res.Signature})
	}
	return success(result{
		"signature":     res.Signature,
		"input_amount":  res.InputAmountResult,
		"output_amount": res.OutputAmountResult,
		"swap_type":     order.SwapType,
		"gasless":       order.Gasless,
	})
}

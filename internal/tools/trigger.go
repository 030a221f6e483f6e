package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/jupiter"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/solana"
)

const triggerDescription = "Actions: 'create' (new limit order), 'cancel' (cancel specific order), " +
	"'cancel_all' (cancel all orders), 'list' (view orders). " +
	"For cancel, first use 'list' action to get the order public key."

const triggerOrderParams = `
			"action": {
				"type": "string",
				"enum": ["create", "cancel", "cancel_all", "list"],
				"description": "Action to perform: 'create' (new limit order), 'cancel' (cancel specific order by pubkey), 'cancel_all' (cancel all open orders), 'list' (view active orders)"
			},
			"input_mint": {
				"type": "string",
				"description": "Token mint to sell (required for 'create')."
			},
			"output_mint": {
				"type": "string",
				"description": "Token mint to buy (required for 'create')."
			},
			"making_amount": {
				"type": "string",
				"description": "Amount of input token to sell in base units (required for 'create')."
			},
			"taking_amount": {
				"type": "string",
				"description": "Amount of output token to receive in base units (required for 'create')."
			},
			"expired_at": {
				"type": "string",
				"description": "Unix timestamp when order expires (optional for 'create')."
			},
			"order_pubkey": {
				"type": "string",
				"description": "Order public key to cancel (required for 'cancel'). Get this from 'list' action."
			}`

var (
	errNoListWallet = errors.New("Either wallet_address parameter or private_key config required.")
	errPrivySign    = errors.New("Failed to sign transaction via Privy.")
)

// triggerOrders runs the limit-order actions for one wallet. maker
// resolves the signing wallet; land signs a Jupiter transaction and returns
// its signature.
type triggerOrders struct {
	trigger *jupiter.Trigger
	keys    LocalKeys
	cfg     tool.JupiterConfig

	maker func(ctx context.Context, params map[string]any) (solana.Signer, error)
	land  func(ctx context.Context, txB64, requestID string, signers ...solana.Signer) (string, error)
	// listWallet resolves the wallet for "list", which needs no signer.
	listWallet func(ctx context.Context, params map[string]any) (string, error)
}

func (o *triggerOrders) run(ctx context.Context, params map[string]any) (string, error) {
	action := strings.ToLower(stringParam(params, "action"))
	switch action {
	case "create":
		return o.create(ctx, params)
	case "cancel":
		return o.cancel(ctx, params)
	case "cancel_all":
		return o.cancelAll(ctx, params)
	case "list":
		return o.list(ctx, params)
	}
	return failure(fmt.Sprintf("Unknown action: %s. Valid actions: create, cancel, cancel_all, list", action))
}

// signers returns the maker and the optional payer.
func (o *triggerOrders) signers(ctx context.Context, params map[string]any) (solana.Signer, *solana.Keypair, error) {
	maker, err := o.maker(ctx, params)
	if err != nil {
		return nil, nil, err
	}
	payer, err := o.keys.Payer()
	if err != nil {
		return nil, nil, err
	}
	return maker, payer, nil
}

func payerAddress(payer *solana.Keypair) string {
	if payer == nil {
		return ""
	}
	return payer.PublicKey().String()
}

func (o *triggerOrders) create(ctx context.Context, params map[string]any) (string, error) {
	req := jupiter.CreateOrderRequest{
		InputMint:    stringParam(params, "input_mint"),
		OutputMint:   stringParam(params, "output_mint"),
		MakingAmount: stringParam(params, "making_amount"),
		TakingAmount: stringParam(params, "taking_amount"),
		ExpiredAt:    stringParam(params, "expired_at"),
		FeeBps:       o.cfg.ReferralFee,
		FeeAccount:   o.cfg.ReferralAccount,
	}
	if req.InputMint == "" || req.OutputMint == "" || req.MakingAmount == "" || req.TakingAmount == "" {
		return failure("Missing required parameters: input_mint, output_mint, making_amount, taking_amount")
	}
	maker, payer, err := o.signers(ctx, params)
	if err != nil {
		return failureErr(err)
	}
	req.Maker = maker.PublicKey().String()
	req.Payer = payerAddress(payer)

	out, err := o.trigger.CreateOrder(ctx, req)
	if err != nil {
		slog.Error("trigger: create failed", "maker", req.Maker, "err", err)
		return failureErr(err)
	}
	if out.Transaction == "" {
		return failure("No transaction returned from Jupiter.")
	}
	sig, err := o.land(ctx, out.Transaction, out.RequestID, solana.Optional(payer), maker)
	if err != nil {
		return failureErr(err)
	}
	return success(result{
		"action":       "create",
		"order_pubkey": out.Order,
		"signature":    sig,
		"message":      "Limit order created. Order pubkey: " + out.Order,
	})
}

func (o *triggerOrders) cancel(ctx context.Context, params map[string]any) (string, error) {
	orderKey := stringParam(params, "order_pubkey")
	if orderKey == "" {
		return failure("Missing required parameter: order_pubkey. Use 'list' action first to get order pubkeys.")
	}
	maker, payer, err := o.signers(ctx, params)
	if err != nil {
		return failureErr(err)
	}
	makerAddr := maker.PublicKey().String()

	// An unreadable order list does not block the cancel.
	if page, err := o.trigger.GetOrders(ctx, makerAddr, "active", 1, "", ""); err == nil {
		owned := false
		for _, raw := range page.Orders {
			if orderPubkey(gjson.ParseBytes(raw)) == orderKey {
				owned = true
				break
			}
		}
		if !owned {
			return failure(fmt.Sprintf("Order %s does not belong to this wallet or is not active.", orderKey))
		}
	}

	out, err := o.trigger.CancelOrder(ctx, makerAddr, orderKey, payerAddress(payer))
	if err != nil {
		return failureErr(err)
	}
	if out.Transaction == "" {
		return failure("No transaction returned from Jupiter.")
	}
	sig, err := o.land(ctx, out.Transaction, out.RequestID, solana.Optional(payer), maker)
	if err != nil {
		return failureErr(err)
	}
	return success(result{
		"action":       "cancel",
		"order_pubkey": orderKey,
		"signature":    sig,
		"message":      fmt.Sprintf("Order %s cancelled.", orderKey),
	})
}

func (o *triggerOrders) cancelAll(ctx context.Context, params map[string]any) (string, error) {
	maker, payer, err := o.signers(ctx, params)
	if err != nil {
		return failureErr(err)
	}
	makerAddr := maker.PublicKey().String()

	page, err := o.trigger.GetOrders(ctx, makerAddr, "active", 1, "", "")
	if err != nil {
		return failureErr(err)
	}
	if len(page.Orders) == 0 {
		return success(result{"action": "cancel_all", "cancelled_count": 0, "message": "No active orders to cancel."})
	}

	out, err := o.trigger.CancelOrders(ctx, makerAddr, nil, payerAddress(payer))
	if err != nil {
		return failureErr(err)
	}
	if len(out.Transactions) == 0 {
		return failure("No transactions returned from Jupiter.")
	}

	sigs := []string{}
	for _, tx := range out.Transactions {
		sig, err := o.land(ctx, tx, out.RequestID, solana.Optional(payer), maker)
		if err != nil {
			slog.Warn("trigger: cancel batch failed", "maker", makerAddr, "err", err)
			continue
		}
		sigs = append(sigs, sig)
	}
	return success(result{
		"action":          "cancel_all",
		"cancelled_count": len(page.Orders),
		"signatures":      sigs,
		"message":         fmt.Sprintf("Cancelled %d orders.", len(page.Orders)),
	})
}

func (o *triggerOrders) list(ctx context.Context, params map[string]any) (string, error) {
	wallet, err := o.listWallet(ctx, params)
	if err != nil {
		return failureErr(err)
	}
	page, err := o.trigger.GetOrders(ctx, wallet, "active", 1, "", "")
	if err != nil {
		return failureErr(err)
	}

	orders := make([]result, 0, len(page.Orders))
	for _, raw := range page.Orders {
		ord := gjson.ParseBytes(raw)
		orders = append(orders, result{
			"order_pubkey":            orderPubkey(ord),
			"input_mint":              ord.Get("inputMint").Value(),
			"output_mint":             ord.Get("outputMint").Value(),
			"making_amount":           ord.Get("makingAmount").Value(),
			"taking_amount":           ord.Get("takingAmount").Value(),
			"remaining_making_amount": ord.Get("remainingMakingAmount").Value(),
			"remaining_taking_amount": ord.Get("remainingTakingAmount").Value(),
			"status":                  ord.Get("status").Value(),
			"expired_at":              ord.Get("expiredAt").Value(),
			"created_at":              ord.Get("createdAt").Value(),
		})
	}
	msg := "No active orders."
	if len(orders) > 0 {
		msg = fmt.Sprintf("Found %d active orders.", len(orders))
	}
	return success(result{
		"action":      "list",
		"wallet":      wallet,
		"order_count": len(orders),
		"orders":      orders,
		"message":     msg,
	})
}

func orderPubkey(ord gjson.Result) string {
	for _, k := range []string{"orderKey", "order", "orderPubkey"} {
		if s := ord.Get(k).String(); s != "" {
			return s
		}
	}
	return ""
}

// ---------------------------------------------------------------------------
// JupiterTriggerTool
// ---------------------------------------------------------------------------

// JupiterTriggerTool manages limit orders for the local keypair and lands
// its transactions through the RPC relay.
type JupiterTriggerTool struct {
	orders *triggerOrders
}

func NewJupiterTriggerTool(tr *jupiter.Trigger, relay *solana.Relay, keys LocalKeys, cfg tool.JupiterConfig) *JupiterTriggerTool {
	o := &triggerOrders{trigger: tr, keys: keys, cfg: cfg}
	o.maker = func(context.Context, map[string]any) (solana.Signer, error) {
		kp, err := keys.Wallet()
		if err != nil {
			return nil, err
		}
		return kp, nil
	}
	o.land = func(ctx context.Context, txB64, _ string, signers ...solana.Signer) (string, error) {
		if relay == nil {
			return "", errRPCURL
		}
		return relay.SignAndSend(ctx, txB64, signers...)
	}
	o.listWallet = func(_ context.Context, params map[string]any) (string, error) {
		if w := stringParam(params, "wallet_address"); w != "" {
			return w, nil
		}
		if keys.Secret == "" {
			return "", errNoListWallet
		}
		kp, err := keys.Wallet()
		if err != nil {
			return "", err
		}
		return kp.PublicKey().String(), nil
	}
	return &JupiterTriggerTool{orders: o}
}

func (t *JupiterTriggerTool) Name() string { return string(ToolJupiterTrigger) }
func (t *JupiterTriggerTool) Description() string {
	return "Create and manage limit orders on Solana using Jupiter Trigger API. " + triggerDescription
}
func (t *JupiterTriggerTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {` + triggerOrderParams + `,
			"wallet_address": {
				"type": "string",
				"description": "Wallet address to list orders for (optional for 'list', defaults to the configured wallet)."
			}
		},
		"required": ["action"],
		"additionalProperties": false
	}`)
}

func (t *JupiterTriggerTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return t.orders.run(ctx, params)
}

// ---------------------------------------------------------------------------
// PrivyTriggerTool
// ---------------------------------------------------------------------------

// PrivyTriggerTool manages limit orders for a Privy delegated wallet. The
// payer signs first, Privy signs for the user and Jupiter /execute lands
// the transaction.
type PrivyTriggerTool struct {
	orders *triggerOrders
}

func NewPrivyTriggerTool(tr *jupiter.Trigger, w *PrivyWallets, keys LocalKeys, cfg tool.JupiterConfig) *PrivyTriggerTool {
	o := &triggerOrders{trigger: tr, keys: keys, cfg: cfg}
	o.maker = func(ctx context.Context, params map[string]any) (solana.Signer, error) {
		return w.Signer(ctx, stringParam(params, "user_id"))
	}
	o.land = func(ctx context.Context, txB64, requestID string, signers ...solana.Signer) (string, error) {
		signed, err := solana.SignEncoded(ctx, txB64, signers...)
		if err != nil {
			slog.Error("privy_trigger: signing failed", "err", err)
			return "", errPrivySign
		}
		res, err := tr.Execute(ctx, signed, requestID)
		if err != nil {
			return "", err
		}
		if !res.Succeeded() {
			if res.Error == "" {
				return "", errors.New("Unknown error")
			}
			return "", errors.New(res.Error)
		}
		return res.Signature, nil
	}
	o.listWallet = func(ctx context.Context, params map[string]any) (string, error) {
		s, err := w.Signer(ctx, stringParam(params, "user_id"))
		if err != nil {
			return "", err
		}
		return s.PublicKey().String(), nil
	}
	return &PrivyTriggerTool{orders: o}
}

func (t *PrivyTriggerTool) Name() string { return string(ToolPrivyTrigger) }
func (t *PrivyTriggerTool) Description() string {
	return "Create and manage limit orders on Solana using Jupiter Trigger API with Privy delegated wallets. " + triggerDescription
}
func (t *PrivyTriggerTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {
				"type": "string",
				"description": "Privy user id (did) for the delegated wallet."
			},` + triggerOrderParams + `
		},
		"required": ["user_id", "action"],
		"additionalProperties": false
	}`)
}

func (t *PrivyTriggerTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return t.orders.run(ctx, params)
}

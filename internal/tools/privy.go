package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/config/tool"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/httpx"
	"github.com/truemagic-coder/solana-agent-kit-sub000/internal/privy"
)

// privyFailure reports HTTP failures with the status and body.
func privyFailure(op string, err error) (string, error) {
	slog.Error("privy: "+op+" failed", "err", err)
	var se *httpx.StatusError
	if errors.As(err, &se) {
		return failure(fmt.Sprintf("HTTP error: %d - %s", se.Code, se.Body))
	}
	return failureErr(err)
}

func telegramSchema(desc string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"telegram_user_id": map[string]any{"type": "string", "description": desc},
		},
		"required":             []string{"telegram_user_id"},
		"additionalProperties": false,
	})
	return raw
}

// ---------------------------------------------------------------------------
// PrivyCreateUserTool
// ---------------------------------------------------------------------------

type PrivyCreateUserTool struct {
	wallets *PrivyWallets
}

func NewPrivyCreateUserTool(w *PrivyWallets) *PrivyCreateUserTool {
	return &PrivyCreateUserTool{wallets: w}
}

func (t *PrivyCreateUserTool) Name() string { return string(ToolPrivyCreateUser) }
func (t *PrivyCreateUserTool) Description() string {
	return "Create a new Privy user with a linked Telegram account. Used for bot-first Telegram bot flows."
}
func (t *PrivyCreateUserTool) Parameters() json.RawMessage {
	return telegramSchema("The Telegram user ID to link to the new Privy user.")
}

func (t *PrivyCreateUserTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	c, err := t.wallets.App()
	if err != nil {
		return failureErr(err)
	}
	tg := stringParam(params, "telegram_user_id")
	if tg == "" {
		return failure("telegram_user_id is required")
	}
	u, err := c.CreateUser(ctx, tg)
	if err != nil {
		return privyFailure("create user", err)
	}
	linked := json.RawMessage(`[]`)
	if v := gjson.GetBytes(u.Raw, "linked_accounts"); v.IsArray() {
		linked = json.RawMessage(v.Raw)
	}
	return success(result{"result": result{
		"user_id":         u.ID,
		"created_at":      u.CreatedAt,
		"linked_accounts": linked,
	}})
}

// ---------------------------------------------------------------------------
// PrivyCreateWalletTool
// ---------------------------------------------------------------------------

type PrivyCreateWalletTool struct {
	wallets *PrivyWallets
	cfg     tool.PrivyConfig
}

func NewPrivyCreateWalletTool(w *PrivyWallets, cfg tool.PrivyConfig) *PrivyCreateWalletTool {
	return &PrivyCreateWalletTool{wallets: w, cfg: cfg}
}

func (t *PrivyCreateWalletTool) Name() string { return string(ToolPrivyCreateWallet) }
func (t *PrivyCreateWalletTool) Description() string {
	return "Create a new Solana wallet for a Privy user with optional bot delegation. Used for bot-first Telegram bot flows."
}
func (t *PrivyCreateWalletTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"user_id": {
				"type": "string",
				"description": "The Privy user ID (did:privy:...) to create a wallet for."
			},
			"chain_type": {
				"type": "string",
				"description": "The blockchain type. Defaults to 'solana'.",
				"enum": ["solana", "ethereum"],
				"default": "solana"
			}
		},
		"required": ["user_id", "chain_type"],
		"additionalProperties": false
	}`)
}

func (t *PrivyCreateWalletTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	c, err := t.wallets.App()
	if err != nil {
		return failureErr(err)
	}
	user := stringParam(params, "user_id")
	if user == "" {
		return failure("user_id is required")
	}
	chain := stringParam(params, "chain_type")
	if chain == "" {
		chain = "solana"
	}

	w, err := c.CreateWallet(ctx, user, chain, t.cfg.OwnerID)
	if err != nil {
		return privyFailure("create wallet", err)
	}
	signers := w.AdditionalSigners
	if len(signers) == 0 || string(signers) == "null" {
		signers = json.RawMessage(`[]`)
	}
	return success(result{"result": result{
		"wallet_id":          w.ID,
		"address":            w.Address,
		"chain_type":         w.ChainType,
		"created_at":         w.CreatedAt,
		"owner_id":           optString(w.OwnerID),
		"additional_signers": signers,
	}})
}

// ---------------------------------------------------------------------------
// PrivyUserByTelegramTool
// ---------------------------------------------------------------------------

type PrivyUserByTelegramTool struct {
	wallets *PrivyWallets
}

func NewPrivyUserByTelegramTool(w *PrivyWallets) *PrivyUserByTelegramTool {
	return &PrivyUserByTelegramTool{wallets: w}
}

func (t *PrivyUserByTelegramTool) Name() string { return string(ToolPrivyUserByTelegram) }
func (t *PrivyUserByTelegramTool) Description() string {
	return "Look up an existing Privy user by their Telegram user ID. Returns user info and linked wallets."
}
func (t *PrivyUserByTelegramTool) Parameters() json.RawMessage {
	return telegramSchema("The Telegram user ID to look up.")
}

func (t *PrivyUserByTelegramTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	c, err := t.wallets.App()
	if err != nil {
		return failureErr(err)
	}
	tg := stringParam(params, "telegram_user_id")
	if tg == "" {
		return failure("telegram_user_id is required")
	}

	u, err := c.FindUserByTelegram(ctx, tg)
	if errors.Is(err, privy.ErrNotFound) {
		return encode(result{
			"status":  "not_found",
			"message": "No Privy user found for Telegram ID: " + tg,
		})
	}
	if err != nil {
		return privyFailure("get user by telegram", err)
	}
	wallets := privy.EmbeddedWallets(u.LinkedAccounts)
	return success(result{"result": result{
		"user_id":    u.ID,
		"created_at": u.CreatedAt,
		"wallets":    wallets,
		"has_wallet": len(wallets) > 0,
	}})
}

// ---------------------------------------------------------------------------
// PrivyWalletAddressTool
// ---------------------------------------------------------------------------

type PrivyWalletAddressTool struct {
	wallets *PrivyWallets
}

func NewPrivyWalletAddressTool(w *PrivyWallets) *PrivyWalletAddressTool {
	return &PrivyWalletAddressTool{wallets: w}
}

func (t *PrivyWalletAddressTool) Name() string { return string(ToolPrivyWalletAddress) }
func (t *PrivyWalletAddressTool) Description() string {
	return "Get the wallet address of a Privy delegated embedded wallet."
}
func (t *PrivyWalletAddressTool) Parameters() json.RawMessage {
	return userIDSchema("Privy user id (did) whose delegated embedded wallet address to return.")
}

func (t *PrivyWalletAddressTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	userID := stringParam(params, "user_id")
	if userID == "" {
		return failureErr(errUserID)
	}
	addr, err := t.wallets.Address(ctx, userID)
	if err != nil {
		return failureErr(err)
	}
	return success(result{"result": addr})
}
